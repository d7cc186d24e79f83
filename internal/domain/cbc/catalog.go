package cbc

import "strings"

// ParameterID identifies one of the canonical complete-blood-count measurements.
type ParameterID string

const (
	WBC    ParameterID = "WBC"
	LYPct  ParameterID = "LY%"
	MOPct  ParameterID = "MO%"
	NEPct  ParameterID = "NE%"
	EOPct  ParameterID = "EO%"
	BAPct  ParameterID = "BA%"
	LYAbs  ParameterID = "LY#"
	MOAbs  ParameterID = "MO#"
	NEAbs  ParameterID = "NE#"
	EOAbs  ParameterID = "EO#"
	BAAbs  ParameterID = "BA#"
	RBC    ParameterID = "RBC"
	HGB    ParameterID = "HGB"
	HCT    ParameterID = "HCT"
	MCV    ParameterID = "MCV"
	MCHC   ParameterID = "MCHC"
	MCH    ParameterID = "MCH"
	RDW    ParameterID = "RDW"
	PLT    ParameterID = "PLT"
	MPV    ParameterID = "MPV"
	Age    ParameterID = "Age"
	Gender ParameterID = "Gender"
)

// IsPercentage reports whether the parameter is a leukocyte differential percentage.
func (id ParameterID) IsPercentage() bool {
	return strings.HasSuffix(string(id), "%")
}

// IsAbsoluteCount reports whether the parameter is a leukocyte subtype absolute count.
func (id ParameterID) IsAbsoluteCount() bool {
	return strings.HasSuffix(string(id), "#")
}

// Range is the acceptance and clinical reference band for a parameter.
type Range struct {
	AbsoluteMin float64 `json:"absolute_min"`
	AbsoluteMax float64 `json:"absolute_max"`
	NormalLow   float64 `json:"normal_low"`
	NormalHigh  float64 `json:"normal_high"`
	Unit        string  `json:"unit"`
}

// Parameter is a catalog entry. Aliases are lowercase and ordered by preference.
type Parameter struct {
	ID      ParameterID `json:"id"`
	Display string      `json:"display"`
	LOINC   string      `json:"loinc"`
	Range   Range       `json:"range"`
	Aliases []string    `json:"aliases"`
}

// DifferentialPairs lists each leukocyte subtype as (percentage, absolute count).
var DifferentialPairs = [5][2]ParameterID{
	{LYPct, LYAbs},
	{MOPct, MOAbs},
	{NEPct, NEAbs},
	{EOPct, EOAbs},
	{BAPct, BAAbs},
}

// Percentages lists the differential percentages in catalog order.
var Percentages = []ParameterID{LYPct, MOPct, NEPct, EOPct, BAPct}

var catalog = []Parameter{
	{
		ID: WBC, Display: "Leukocytes [#/volume] in Blood", LOINC: "6690-2",
		Range: Range{1, 50, 4, 11, "10*3/uL"},
		Aliases: []string{
			"wbc", "w.b.c", "w b c", "white blood cell", "white blood cells", "leucocyte",
			"leukocyte", "leukocytes", "total wbc", "twbc", "tc", "total count",
			"total leukocyte count", "total leucocyte count", "white cell count",
			"wcc", "leucocyte count", "leukocyte count", "total white cell count",
		},
	},
	{
		ID: LYPct, Display: "Lymphocytes/100 leukocytes in Blood", LOINC: "736-9",
		Range: Range{0, 100, 20, 40, "%"},
		Aliases: []string{
			"ly%", "lymph%", "lymphocyte%", "lymphocytes%", "l%", "lym%", "lymph percent",
			"lymphocyte percent", "lymphocytes", "lymph percentage", "lymphocyte percentage",
			"ly %", "lym %", "lymph %", "lymphocyte %", "lymphocytes %",
		},
	},
	{
		ID: MOPct, Display: "Monocytes/100 leukocytes in Blood", LOINC: "5905-5",
		Range: Range{0, 100, 2, 8, "%"},
		Aliases: []string{
			"mo%", "mono%", "monocyte%", "monocytes%", "m%", "mon%", "monocyte percent",
			"monocytes", "monocyte percentage", "mono percent", "mono percentage",
			"mo %", "mono %", "monocyte %", "monocytes %",
		},
	},
	{
		ID: NEPct, Display: "Neutrophils/100 leukocytes in Blood", LOINC: "770-8",
		Range: Range{0, 100, 50, 70, "%"},
		Aliases: []string{
			"ne%", "neut%", "neutrophil%", "neutrophils%", "n%", "neu%", "neutrophil percent",
			"pmn%", "segmented neutrophils", "neutrophils", "neutrophil percentage",
			"neut percent", "seg%", "segs%", "polymorphs%", "polys%",
			"ne %", "neut %", "neutrophil %", "neutrophils %",
		},
	},
	{
		ID: EOPct, Display: "Eosinophils/100 leukocytes in Blood", LOINC: "713-8",
		Range: Range{0, 100, 1, 4, "%"},
		Aliases: []string{
			"eo%", "eosinophil%", "eosinophils%", "e%", "eos%", "eosinophil percent",
			"eosinophils", "eosinophil percentage", "eos percent",
			"eo %", "eos %", "eosinophil %", "eosinophils %",
		},
	},
	{
		ID: BAPct, Display: "Basophils/100 leukocytes in Blood", LOINC: "706-2",
		Range: Range{0, 100, 0, 1, "%"},
		Aliases: []string{
			"ba%", "baso%", "basophil%", "basophils%", "b%", "bas%", "basophil percent",
			"basophils", "basophil percentage", "baso percent",
			"ba %", "baso %", "basophil %", "basophils %",
		},
	},
	{
		ID: LYAbs, Display: "Lymphocytes [#/volume] in Blood", LOINC: "731-0",
		Range: Range{0, 15, 1.2, 3.4, "10*3/uL"},
		Aliases: []string{
			"ly#", "lymph#", "lymphocyte#", "lymphocytes#", "l#", "lym#", "lymph count",
			"lymphocyte count", "lymph abs", "lymph absolute", "absolute lymphocyte count",
			"lymphocyte absolute", "ly #", "lymph #", "lymphocyte #",
			"lymphocytes absolute", "absolute lymphocytes", "lymphocytes abs",
		},
	},
	{
		ID: MOAbs, Display: "Monocytes [#/volume] in Blood", LOINC: "742-7",
		Range: Range{0, 5, 0.1, 0.9, "10*3/uL"},
		Aliases: []string{
			"mo#", "mono#", "monocyte#", "monocytes#", "m#", "mon#", "monocyte count",
			"mono count", "mono abs", "absolute monocyte count", "monocyte absolute",
			"mo #", "mono #", "monocyte #",
			"monocytes absolute", "absolute monocytes", "monocytes abs",
		},
	},
	{
		ID: NEAbs, Display: "Neutrophils [#/volume] in Blood", LOINC: "751-8",
		Range: Range{0, 25, 1.8, 7.7, "10*3/uL"},
		Aliases: []string{
			"ne#", "neut#", "neutrophil#", "neutrophils#", "n#", "neu#", "neutrophil count",
			"neut count", "pmn#", "neutrophil abs", "absolute neutrophil count",
			"neutrophil absolute", "seg#", "segs#", "ne #", "neut #", "neutrophil #",
			"neutrophils absolute", "absolute neutrophils", "neutrophils abs",
		},
	},
	{
		ID: EOAbs, Display: "Eosinophils [#/volume] in Blood", LOINC: "711-2",
		Range: Range{0, 5, 0.05, 0.5, "10*3/uL"},
		Aliases: []string{
			"eo#", "eosinophil#", "eosinophils#", "e#", "eos#", "eosinophil count",
			"eos count", "eosinophil abs", "absolute eosinophil count",
			"eosinophil absolute", "eo #", "eos #", "eosinophil #",
			"eosinophils absolute", "absolute eosinophils", "eosinophils abs",
		},
	},
	{
		ID: BAAbs, Display: "Basophils [#/volume] in Blood", LOINC: "704-7",
		Range: Range{0, 2, 0, 0.2, "10*3/uL"},
		Aliases: []string{
			"ba#", "baso#", "basophil#", "basophils#", "b#", "bas#", "basophil count",
			"baso count", "basophil abs", "absolute basophil count",
			"basophil absolute", "ba #", "baso #", "basophil #",
			"basophils absolute", "absolute basophils", "basophils abs",
		},
	},
	{
		ID: RBC, Display: "Erythrocytes [#/volume] in Blood", LOINC: "789-8",
		Range: Range{2, 8, 4.2, 5.4, "10*6/uL"},
		Aliases: []string{
			"rbc", "r.b.c", "r b c", "red blood cell", "red blood cells", "erythrocyte",
			"erythrocytes", "total rbc", "trbc", "red cell count", "rbc count",
			"red blood cell count", "erythrocyte count", "red cells",
		},
	},
	{
		ID: HGB, Display: "Hemoglobin [Mass/volume] in Blood", LOINC: "718-7",
		Range: Range{5, 20, 12, 16, "g/dL"},
		Aliases: []string{
			"hgb", "hb", "hemoglobin", "haemoglobin", "hemo", "haemo", "hemoglobin level",
			"haemoglobin level", "hgb level", "hb level", "hemoglobin concentration",
		},
	},
	{
		ID: HCT, Display: "Hematocrit [Volume Fraction] of Blood", LOINC: "4544-3",
		Range: Range{15, 60, 36, 48, "%"},
		Aliases: []string{
			"hct", "hematocrit", "haematocrit", "pcv", "packed cell volume", "hematocrit level",
			"haematocrit level", "hct level", "pcv level", "packed cell vol",
		},
	},
	{
		ID: MCV, Display: "MCV [Entitic volume]", LOINC: "787-2",
		Range: Range{60, 120, 80, 100, "fL"},
		Aliases: []string{
			"mcv", "mean corpuscular volume", "mean cell volume", "average cell volume",
			"mean corpuscular vol", "mean cell vol", "avg cell volume",
		},
	},
	{
		ID: MCHC, Display: "MCHC [Mass/volume]", LOINC: "786-4",
		Range: Range{25, 40, 32, 36, "g/dL"},
		Aliases: []string{
			"mchc", "mean corpuscular hemoglobin concentration", "mean cell hemoglobin concentration",
			"mean corpuscular haemoglobin concentration", "mean cell haemoglobin concentration",
			"mean corpuscular hgb conc", "mean cell hgb conc",
		},
	},
	{
		ID: MCH, Display: "MCH [Entitic mass]", LOINC: "785-6",
		Range: Range{20, 40, 27, 33, "pg"},
		Aliases: []string{
			"mch", "mean corpuscular hemoglobin", "mean cell hemoglobin", "average cell hemoglobin",
			"mean corpuscular haemoglobin", "mean cell haemoglobin", "mean corpuscular hgb",
			"mean cell hgb", "avg cell hemoglobin",
		},
	},
	{
		ID: RDW, Display: "Erythrocyte distribution width [Ratio]", LOINC: "788-0",
		Range: Range{10, 25, 11.5, 14.5, "%"},
		Aliases: []string{
			"rdw", "red cell distribution width", "red blood cell distribution width",
			"rdw-cv", "rdw-sd", "rdw cv", "rdw sd", "red cell dist width",
			"rbc distribution width", "red cell distribution",
		},
	},
	{
		ID: PLT, Display: "Platelets [#/volume] in Blood", LOINC: "777-3",
		Range: Range{50, 1500, 150, 450, "10*3/uL"},
		Aliases: []string{
			"plt", "platelet", "platelets", "platelet count", "thrombocyte", "thrombocytes",
			"pc", "platelet cnt", "plt count", "thrombocyte count", "platelet number",
			"total platelet count", "total platelets",
		},
	},
	{
		ID: MPV, Display: "Platelet mean volume [Entitic volume] in Blood", LOINC: "32623-1",
		Range: Range{5, 20, 7.5, 11.5, "fL"},
		Aliases: []string{
			"mpv", "mean platelet volume", "average platelet volume", "mean thrombocyte volume",
			"avg platelet volume", "mean plt volume", "mean platelet vol",
		},
	},
	{
		ID: Age, Display: "Age", LOINC: "30525-0",
		Range: Range{0, 120, 0, 120, "a"},
		Aliases: []string{
			"age", "years", "yrs", "yr", "years old", "age in years", "patient age",
			"age(years)", "age (years)", "age(yrs)", "age (yrs)",
		},
	},
	{
		ID: Gender, Display: "Sex assigned at birth", LOINC: "76689-9",
		Range: Range{0, 1, 0, 1, "0=F, 1=M"},
		Aliases: []string{
			"gender", "sex", "male", "female", "m", "f", "patient sex", "patient gender",
			"gender/sex", "sex/gender", "pt sex", "pt gender",
		},
	},
}

var byID = func() map[ParameterID]*Parameter {
	m := make(map[ParameterID]*Parameter, len(catalog))
	for i := range catalog {
		m[catalog[i].ID] = &catalog[i]
	}
	return m
}()

// Count is the number of canonical parameters.
var Count = len(catalog)

// Parameters returns the catalog in canonical order. The result must not be modified.
func Parameters() []Parameter {
	return catalog
}

// IDs returns all parameter IDs in canonical order.
func IDs() []ParameterID {
	ids := make([]ParameterID, len(catalog))
	for i, p := range catalog {
		ids[i] = p.ID
	}
	return ids
}

// Lookup returns the catalog entry for id.
func Lookup(id ParameterID) (Parameter, bool) {
	p, ok := byID[id]
	if !ok {
		return Parameter{}, false
	}
	return *p, true
}

// TopAliases returns at most n preferred aliases of id.
func TopAliases(id ParameterID, n int) []string {
	p, ok := byID[id]
	if !ok {
		return nil
	}
	if n > len(p.Aliases) {
		n = len(p.Aliases)
	}
	return p.Aliases[:n]
}
