package appointment

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Temperature units accepted on a vitals reading.
const (
	UnitFahrenheit = "F"
	UnitCelsius    = "C"
)

// Vitals is one set of measurements taken during a visit. All
// measurements are optional but at least one must be present.
type Vitals struct {
	ID              uuid.UUID `db:"id" json:"id"`
	AppointmentID   uuid.UUID `db:"appointment_id" json:"appointment_id"`
	WeightKg        *float64  `db:"weight_kg" json:"weight_kg,omitempty"`
	HeightCm        *float64  `db:"height_cm" json:"height_cm,omitempty"`
	Temperature     *float64  `db:"temperature" json:"temperature,omitempty"`
	TemperatureUnit string    `db:"temperature_unit" json:"temperature_unit,omitempty"`
	HeartRate       *int      `db:"heart_rate" json:"heart_rate,omitempty"`
	RespiratoryRate *int      `db:"respiratory_rate" json:"respiratory_rate,omitempty"`
	Systolic        *int      `db:"systolic" json:"systolic,omitempty"`
	Diastolic       *int      `db:"diastolic" json:"diastolic,omitempty"`
	SpO2            *int      `db:"spo2" json:"spo2,omitempty"`
	BloodSugar      *float64  `db:"blood_sugar" json:"blood_sugar,omitempty"`
	PainScore       *int      `db:"pain_score" json:"pain_score,omitempty"`
	BMI             *float64  `db:"bmi" json:"bmi,omitempty"`
	RecordedBy      string    `db:"recorded_by" json:"recorded_by"`
	RecordedAt      time.Time `db:"recorded_at" json:"recorded_at"`
}

// Validate checks every present measurement against its physiological
// range and reports all violations together.
func (v *Vitals) Validate() error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	any := false
	if v.WeightKg != nil {
		any = true
		if *v.WeightKg <= 0 || *v.WeightKg > 500 {
			add("weight must be between 0 and 500 kg, got %.1f", *v.WeightKg)
		}
	}
	if v.HeightCm != nil {
		any = true
		if *v.HeightCm < 10 || *v.HeightCm > 300 {
			add("height must be between 10 and 300 cm, got %.1f", *v.HeightCm)
		}
	}
	if v.Temperature != nil {
		any = true
		switch v.TemperatureUnit {
		case UnitCelsius:
			if *v.Temperature < 25 || *v.Temperature > 46 {
				add("temperature must be between 25 and 46 °C, got %.1f", *v.Temperature)
			}
		case UnitFahrenheit, "":
			if *v.Temperature < 77 || *v.Temperature > 115 {
				add("temperature must be between 77 and 115 °F, got %.1f", *v.Temperature)
			}
		default:
			add("unknown temperature unit %q", v.TemperatureUnit)
		}
	}
	if v.HeartRate != nil {
		any = true
		if *v.HeartRate < 20 || *v.HeartRate > 300 {
			add("heart rate must be between 20 and 300, got %d", *v.HeartRate)
		}
	}
	if v.RespiratoryRate != nil {
		any = true
		if *v.RespiratoryRate < 1 || *v.RespiratoryRate > 100 {
			add("respiratory rate must be between 1 and 100, got %d", *v.RespiratoryRate)
		}
	}
	if v.Systolic != nil {
		any = true
		if *v.Systolic < 40 || *v.Systolic > 300 {
			add("systolic pressure must be between 40 and 300, got %d", *v.Systolic)
		}
	}
	if v.Diastolic != nil {
		any = true
		if *v.Diastolic < 20 || *v.Diastolic > 200 {
			add("diastolic pressure must be between 20 and 200, got %d", *v.Diastolic)
		}
	}
	if v.Systolic != nil && v.Diastolic != nil && *v.Systolic <= *v.Diastolic {
		add("systolic pressure must be greater than diastolic")
	}
	if v.SpO2 != nil {
		any = true
		if *v.SpO2 < 0 || *v.SpO2 > 100 {
			add("SpO2 must be between 0 and 100, got %d", *v.SpO2)
		}
	}
	if v.BloodSugar != nil {
		any = true
		if *v.BloodSugar <= 0 || *v.BloodSugar > 1000 {
			add("blood sugar must be between 0 and 1000, got %.1f", *v.BloodSugar)
		}
	}
	if v.PainScore != nil {
		any = true
		if *v.PainScore < 0 || *v.PainScore > 10 {
			add("pain score must be between 0 and 10, got %d", *v.PainScore)
		}
	}

	if !any {
		return fmt.Errorf("at least one measurement is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid vitals: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ComputeBMI fills in BMI when both weight and height are present.
func (v *Vitals) ComputeBMI() {
	if v.WeightKg == nil || v.HeightCm == nil || *v.HeightCm == 0 {
		return
	}
	m := *v.HeightCm / 100
	bmi := math.Round(*v.WeightKg/(m*m)*10) / 10
	v.BMI = &bmi
}

// CriticalFindings returns human-readable descriptions of any
// measurements in a critical range. An empty slice means none.
func (v *Vitals) CriticalFindings() []string {
	var findings []string
	if v.HeartRate != nil && (*v.HeartRate < 40 || *v.HeartRate > 150) {
		findings = append(findings, fmt.Sprintf("heart rate %d", *v.HeartRate))
	}
	if v.Systolic != nil && (*v.Systolic < 80 || *v.Systolic > 180) {
		findings = append(findings, fmt.Sprintf("systolic pressure %d", *v.Systolic))
	}
	if v.Diastolic != nil && (*v.Diastolic < 50 || *v.Diastolic > 110) {
		findings = append(findings, fmt.Sprintf("diastolic pressure %d", *v.Diastolic))
	}
	if v.SpO2 != nil && *v.SpO2 < 90 {
		findings = append(findings, fmt.Sprintf("SpO2 %d%%", *v.SpO2))
	}
	if v.Temperature != nil {
		t := *v.Temperature
		if v.TemperatureUnit == UnitCelsius {
			if t < 35 || t > 40 {
				findings = append(findings, fmt.Sprintf("temperature %.1f °C", t))
			}
		} else if t < 95 || t > 104 {
			findings = append(findings, fmt.Sprintf("temperature %.1f °F", t))
		}
	}
	if v.RespiratoryRate != nil && (*v.RespiratoryRate < 8 || *v.RespiratoryRate > 30) {
		findings = append(findings, fmt.Sprintf("respiratory rate %d", *v.RespiratoryRate))
	}
	if v.BloodSugar != nil && (*v.BloodSugar < 50 || *v.BloodSugar > 400) {
		findings = append(findings, fmt.Sprintf("blood sugar %.0f", *v.BloodSugar))
	}
	return findings
}
