// Package domain models CNC machine sensor datasets used for predictive
// maintenance analytics.
//
// # Data Source
//
// Users upload CSV files exported from their shop-floor tooling. The
// reference layout is the AI4I 2020 predictive maintenance dataset:
//
//	UDI,Product ID,Type,Air temperature [K],Process temperature [K],
//	Rotational speed [rpm],Torque [Nm],Tool wear [min],Machine failure
//
// but nothing guarantees uploads follow it. Headers arrive snake_cased,
// abbreviated, with or without unit suffixes, or renamed entirely. The
// backend parses each upload and returns a preview of the first rows as
// JSON objects keyed by the original header strings.
//
// # Feature Resolution
//
// A Row is resolved onto seven canonical features (see FeatureKey) by
// matching normalized column names against a fixed synonym table:
//
//	tier 1  normalized column contains a synonym, or the reverse;
//	        the longest matching synonym wins
//	tier 2  the column contains any single word (len > 1) of a synonym
//	tier 3  sensor features only: the first numeric column whose value
//	        lies in the plausible range for that sensor
//
// A column named "id" never feeds a sensor feature. For the product
// identifier, an "id" column holding a non-numeric value (e.g. "M14860")
// wins outright. For the machine type, a value scan for the quality
// tokens H/M/L (or HIGH/MEDIUM/LOW) is the last resort.
//
// Resolution is a heuristic. A feature that cannot be resolved is
// reported as absent and must be left out of aggregates rather than
// counted as zero.
//
// Plausible ranges (AI4I units):
//
//	air temperature       270 – 330 K
//	process temperature   300 – 450 K
//	rotational speed      500 – 3000 rpm
//	torque                 10 – 80 Nm
//	tool wear               0 – 250 min
//
// The ranges describe one family of milling machines and will misclassify
// readings from equipment that operates outside them.
//
// # Machine Type
//
// The product quality variant is one of L (low, 50% of products), M
// (medium, 30%) or H (high, 20%). Datasets sometimes spell these out;
// CanonicalType folds the long forms to the single letter.
package domain
