package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DatasetStatus is the backend processing state of an upload.
type DatasetStatus string

const (
	StatusPending    DatasetStatus = "pending"
	StatusProcessing DatasetStatus = "processing"
	StatusCompleted  DatasetStatus = "completed"
	StatusFailed     DatasetStatus = "failed"
)

// Terminal reports whether the backend has finished with the dataset.
func (s DatasetStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Dataset is an uploaded CSV file as returned by the dataset service.
type Dataset struct {
	ID           int64         `json:"id"`
	File         string        `json:"file"`
	UploadedAt   time.Time     `json:"uploaded_at"`
	Status       DatasetStatus `json:"status,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	CSVData      []Row         `json:"csv_data,omitempty"`
}

// Name returns the base file name of the upload.
func (d Dataset) Name() string {
	if i := strings.LastIndex(d.File, "/"); i >= 0 {
		return d.File[i+1:]
	}
	return d.File
}

// FlexFloat decodes a JSON number, a numeric string or null. Aggregates
// computed by the backend arrive in either form depending on the database.
type FlexFloat struct {
	Value float64
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = FlexFloat{}
		return nil
	}
	s := string(data)
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return fmt.Errorf("flex float: %w", err)
		}
		s = strings.TrimSpace(str)
		if s == "" {
			*f = FlexFloat{}
			return nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("flex float %q: %w", s, err)
	}
	*f = FlexFloat{Value: v, Valid: true}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(f.Value, 'f', -1, 64)), nil
}

// ProductTypeAggregate is one product/type group of a backend aggregate.
// Only the sums relevant to the enclosing series are populated.
type ProductTypeAggregate struct {
	ProductID          string    `json:"product_id"`
	Type               string    `json:"type"`
	AirTempSum         FlexFloat `json:"air_temp_sum"`
	ProcessTempSum     FlexFloat `json:"process_temp_sum"`
	RotationalSpeedSum FlexFloat `json:"rotational_speed_sum"`
	TorqueSum          FlexFloat `json:"torque_sum"`
}

// DatasetStats is the aggregate payload of the dataset stats endpoint.
type DatasetStats struct {
	TypeCounts                map[string]int         `json:"type_counts"`
	TempByProductType         []ProductTypeAggregate `json:"temp_by_product_type"`
	ProcessSpeedByProductType []ProductTypeAggregate `json:"process_speed_by_product_type"`
	SpeedTorqueByProductType  []ProductTypeAggregate `json:"speed_torque_by_product_type"`
}

// Empty reports whether the backend returned no aggregates at all.
func (s DatasetStats) Empty() bool {
	return len(s.TypeCounts) == 0 &&
		len(s.TempByProductType) == 0 &&
		len(s.ProcessSpeedByProductType) == 0 &&
		len(s.SpeedTorqueByProductType) == 0
}

// Insight is a generated maintenance recommendation for a dataset.
type Insight struct {
	ID             int64     `json:"insight_id"`
	Dataset        int64     `json:"dataset"`
	Recommendation string    `json:"recommendation"`
	CreatedAt      time.Time `json:"created_at"`
}

// User is the account attached to a registered session.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Credentials authenticate a backend request: a bearer access token for
// registered users, or a guest session id.
type Credentials struct {
	AccessToken    string
	GuestSessionID string
}

// Anonymous reports whether neither credential is set.
func (c Credentials) Anonymous() bool {
	return c.AccessToken == "" && c.GuestSessionID == ""
}
