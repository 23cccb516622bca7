package domain

import (
	"fmt"
	"sort"
)

// PreviewStats summarizes the preview rows of a dataset. Averages are nil
// when no row resolved the feature.
type PreviewStats struct {
	RowCount              int      `json:"row_count"`
	MachineCount          int      `json:"machine_count"`
	TypeCount             int      `json:"type_count"`
	AvgAirTemperature     *float64 `json:"avg_air_temperature"`
	AvgProcessTemperature *float64 `json:"avg_process_temperature"`
	AvgRotationalSpeed    *float64 `json:"avg_rotational_speed"`
	AvgTorque             *float64 `json:"avg_torque"`
	AvgToolWear           *float64 `json:"avg_tool_wear"`
}

// ComputePreviewStats resolves each row and aggregates it. Each average is
// taken only over the rows in which that feature resolved.
func ComputePreviewStats(rows []Row) PreviewStats {
	stats := PreviewStats{RowCount: len(rows)}
	if len(rows) == 0 {
		return stats
	}

	products := map[string]bool{}
	types := map[string]bool{}
	sums := map[FeatureKey]float64{}
	counts := map[FeatureKey]int{}

	for _, row := range rows {
		r := ResolveReading(row)
		if r.ProductID != "" {
			products[r.ProductID] = true
		}
		if r.Type != "" {
			types[r.Type] = true
		}
		for _, key := range SensorFeatures {
			if v, ok := r.Value(key); ok {
				sums[key] += v
				counts[key]++
			}
		}
	}

	avg := func(key FeatureKey) *float64 {
		if counts[key] == 0 {
			return nil
		}
		v := sums[key] / float64(counts[key])
		return &v
	}

	stats.MachineCount = len(products)
	stats.TypeCount = len(types)
	stats.AvgAirTemperature = avg(AirTemp)
	stats.AvgProcessTemperature = avg(ProcessTemp)
	stats.AvgRotationalSpeed = avg(RotationalSpeed)
	stats.AvgTorque = avg(Torque)
	stats.AvgToolWear = avg(ToolWear)
	return stats
}

// FormatStat renders an optional statistic with two decimals, or "N/A".
func FormatStat(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *v)
}

// LabelCount is one slice of a categorical chart.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Point is one scatter chart point.
type Point struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	ProductID string  `json:"product_id,omitempty"`
}

// TypeSeries is a scatter series for one machine type.
type TypeSeries struct {
	Type   string  `json:"type"`
	Label  string  `json:"label"`
	Points []Point `json:"points"`
}

// ChartData holds every series shown on the dataset details page. Series
// without points are omitted.
type ChartData struct {
	TypeCounts         []LabelCount `json:"type_counts,omitempty"`
	AirVsProcessTemp   []Point      `json:"air_vs_process_temp,omitempty"`
	SpeedVsTorque      []Point      `json:"speed_vs_torque,omitempty"`
	TempByType         []TypeSeries `json:"temp_by_type,omitempty"`
	ProcessSpeedByType []TypeSeries `json:"process_speed_by_type,omitempty"`
	SpeedTorqueByType  []TypeSeries `json:"speed_torque_by_type,omitempty"`
}

// machineTypes is the series order for per-type charts.
var machineTypes = []string{"H", "M", "L"}

const unknownType = "Unknown"

type productTypeSums struct {
	productID string
	typ       string
	sums      map[FeatureKey]float64
	seen      map[FeatureKey]bool
}

// BuildChartData derives chart series from preview rows. Per-type series
// plot the per product/type sums of each feature pair.
func BuildChartData(rows []Row) ChartData {
	var cd ChartData
	typeCounts := map[string]int{}
	groups := map[string]*productTypeSums{}
	var order []string

	for _, row := range rows {
		r := ResolveReading(row)

		label := r.Type
		if label == "" {
			label = unknownType
		}
		typeCounts[label]++

		if p, ok := pair(r, AirTemp, ProcessTemp); ok {
			cd.AirVsProcessTemp = append(cd.AirVsProcessTemp, p)
		}
		if p, ok := pair(r, RotationalSpeed, Torque); ok {
			cd.SpeedVsTorque = append(cd.SpeedVsTorque, p)
		}

		if r.ProductID == "" || CanonicalType(r.Type) == "" {
			continue
		}
		k := r.ProductID + "|" + r.Type
		g, ok := groups[k]
		if !ok {
			g = &productTypeSums{
				productID: r.ProductID,
				typ:       r.Type,
				sums:      map[FeatureKey]float64{},
				seen:      map[FeatureKey]bool{},
			}
			groups[k] = g
			order = append(order, k)
		}
		for _, key := range SensorFeatures {
			if v, ok := r.Value(key); ok {
				g.sums[key] += v
				g.seen[key] = true
			}
		}
	}

	cd.TypeCounts = sortedCounts(typeCounts)

	byType := func(x, y FeatureKey) []TypeSeries {
		points := map[string][]Point{}
		for _, k := range order {
			g := groups[k]
			if !g.seen[x] || !g.seen[y] {
				continue
			}
			points[g.typ] = append(points[g.typ], Point{X: g.sums[x], Y: g.sums[y], ProductID: g.productID})
		}
		return typeSeries(points)
	}
	cd.TempByType = byType(AirTemp, ProcessTemp)
	cd.ProcessSpeedByType = byType(ProcessTemp, RotationalSpeed)
	cd.SpeedTorqueByType = byType(RotationalSpeed, Torque)
	return cd
}

// ChartDataFromStats builds the per-type series from backend aggregates.
// Groups with an unknown type or a missing sum are skipped.
func ChartDataFromStats(stats DatasetStats) ChartData {
	var cd ChartData
	cd.TypeCounts = sortedCounts(stats.TypeCounts)

	series := func(items []ProductTypeAggregate, x, y func(ProductTypeAggregate) FlexFloat) []TypeSeries {
		points := map[string][]Point{}
		for _, it := range items {
			t := CanonicalType(it.Type)
			xv, yv := x(it), y(it)
			if t == "" || !xv.Valid || !yv.Valid {
				continue
			}
			points[t] = append(points[t], Point{X: xv.Value, Y: yv.Value, ProductID: it.ProductID})
		}
		return typeSeries(points)
	}

	air := func(a ProductTypeAggregate) FlexFloat { return a.AirTempSum }
	process := func(a ProductTypeAggregate) FlexFloat { return a.ProcessTempSum }
	speed := func(a ProductTypeAggregate) FlexFloat { return a.RotationalSpeedSum }
	torque := func(a ProductTypeAggregate) FlexFloat { return a.TorqueSum }

	cd.TempByType = series(stats.TempByProductType, air, process)
	cd.ProcessSpeedByType = series(stats.ProcessSpeedByProductType, process, speed)
	cd.SpeedTorqueByType = series(stats.SpeedTorqueByProductType, speed, torque)
	return cd
}

func pair(r Reading, x, y FeatureKey) (Point, bool) {
	xv, okx := r.Value(x)
	yv, oky := r.Value(y)
	if !okx || !oky {
		return Point{}, false
	}
	return Point{X: xv, Y: yv, ProductID: r.ProductID}, true
}

func typeSeries(points map[string][]Point) []TypeSeries {
	var out []TypeSeries
	for _, t := range machineTypes {
		if len(points[t]) == 0 {
			continue
		}
		out = append(out, TypeSeries{Type: t, Label: t + " Type", Points: points[t]})
	}
	return out
}

func sortedCounts(m map[string]int) []LabelCount {
	if len(m) == 0 {
		return nil
	}
	out := make([]LabelCount, 0, len(m))
	for label, n := range m {
		out = append(out, LabelCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
