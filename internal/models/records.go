// ABOUTME: Concrete record types for every health category.
// ABOUTME: Optional numeric fields are pointers so absent and zero stay distinct.
package models

import (
	"time"

	"github.com/google/uuid"
)

// LabValue is a single laboratory measurement.
type LabValue struct {
	Base    `yaml:",inline"`
	Timed   `yaml:",inline"`
	Name    string   `json:"name" yaml:"name" validate:"required,max=100"`
	Value   float64  `json:"value" yaml:"value"`
	Unit    string   `json:"unit" yaml:"unit" validate:"max=20"`
	MinNorm *float64 `json:"min_norm" yaml:"min_norm,omitempty"`
	MaxNorm *float64 `json:"max_norm" yaml:"max_norm,omitempty"`
}

func (*LabValue) Category() Category { return CategoryLab }

// NewLabValue creates a lab value recorded now.
func NewLabValue(name string, value float64) *LabValue {
	return &LabValue{Base: NewBase(), Timed: Timed{RecordedAt: time.Now()}, Name: name, Value: value}
}

// VitalValue is a blood pressure and pulse reading.
type VitalValue struct {
	Base      `yaml:",inline"`
	Timed     `yaml:",inline"`
	Systolic  *int `json:"sys" yaml:"sys,omitempty" validate:"omitempty,min=0,max=400"`
	Diastolic *int `json:"dia" yaml:"dia,omitempty" validate:"omitempty,min=0,max=300"`
	Pulse     *int `json:"pulse" yaml:"pulse,omitempty" validate:"omitempty,min=0,max=300"`
}

func (*VitalValue) Category() Category { return CategoryVital }

// NewVitalValue creates a vital reading recorded now.
func NewVitalValue(sys, dia, pulse *int) *VitalValue {
	return &VitalValue{Base: NewBase(), Timed: Timed{RecordedAt: time.Now()}, Systolic: sys, Diastolic: dia, Pulse: pulse}
}

// WeightEntry is a weigh-in with optional body-composition figures.
type WeightEntry struct {
	Base            `yaml:",inline"`
	Timed           `yaml:",inline"`
	Weight          float64  `json:"weight" yaml:"weight" validate:"gte=0"`
	FatPercentage   *float64 `json:"fat_percentage" yaml:"fat_percentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	BMI             *float64 `json:"bmi" yaml:"bmi,omitempty" validate:"omitempty,gte=0"`
	SkeletalMuscle  *float64 `json:"skeletal_muscle" yaml:"skeletal_muscle,omitempty" validate:"omitempty,gte=0"`
	MuscleMass      *float64 `json:"muscle_mass" yaml:"muscle_mass,omitempty" validate:"omitempty,gte=0"`
	Protein         *float64 `json:"protein" yaml:"protein,omitempty" validate:"omitempty,gte=0"`
	BMR             *float64 `json:"bmr" yaml:"bmr,omitempty" validate:"omitempty,gte=0"`
	FatFreeMass     *float64 `json:"fat_free_mass" yaml:"fat_free_mass,omitempty" validate:"omitempty,gte=0"`
	SubcutaneousFat *float64 `json:"subcutaneous_fat" yaml:"subcutaneous_fat,omitempty" validate:"omitempty,gte=0"`
	VisceralFat     *float64 `json:"visceral_fat" yaml:"visceral_fat,omitempty" validate:"omitempty,gte=0"`
	BodyWater       *float64 `json:"body_water" yaml:"body_water,omitempty" validate:"omitempty,gte=0"`
	BoneMass        *float64 `json:"bone_mass" yaml:"bone_mass,omitempty" validate:"omitempty,gte=0"`
}

func (*WeightEntry) Category() Category { return CategoryWeight }

// NewWeightEntry creates a weigh-in recorded now.
func NewWeightEntry(weight float64) *WeightEntry {
	return &WeightEntry{Base: NewBase(), Timed: Timed{RecordedAt: time.Now()}, Weight: weight}
}

// Steps is the step count for one day. The store keeps one per day.
type Steps struct {
	Base  `yaml:",inline"`
	Dated `yaml:",inline"`
	Count int `json:"count" yaml:"count" validate:"gte=0"`
}

func (*Steps) Category() Category { return CategorySteps }

// NewSteps creates a step count for day.
func NewSteps(day Day, count int) *Steps {
	return &Steps{Base: NewBase(), Dated: Dated{Date: day}, Count: count}
}

// FoodEntry is a meal or snack with macro figures. Missing macros count as zero.
type FoodEntry struct {
	Base        `yaml:",inline"`
	Timed       `yaml:",inline"`
	Description string   `json:"description" yaml:"description" validate:"max=200"`
	Calories    *int     `json:"calories" yaml:"calories,omitempty" validate:"omitempty,gte=0"`
	Protein     *float64 `json:"protein" yaml:"protein,omitempty" validate:"omitempty,gte=0"`
	Carbs       *float64 `json:"carbs" yaml:"carbs,omitempty" validate:"omitempty,gte=0"`
	Fat         *float64 `json:"fat" yaml:"fat,omitempty" validate:"omitempty,gte=0"`
}

func (*FoodEntry) Category() Category { return CategoryFood }

// NewFoodEntry creates a food entry recorded now.
func NewFoodEntry(description string) *FoodEntry {
	return &FoodEntry{Base: NewBase(), Timed: Timed{RecordedAt: time.Now()}, Description: description}
}

// Activity sources.
const (
	SourceManual = "manual"
	SourceImport = "import"
)

// Activity is an exercise session.
type Activity struct {
	Base        `yaml:",inline"`
	Timed       `yaml:",inline"`
	Type        string   `json:"act_type" yaml:"act_type" validate:"required,max=50"`
	DurationMin *int     `json:"duration" yaml:"duration,omitempty" validate:"omitempty,gte=0"`
	DistanceKm  *float64 `json:"distance" yaml:"distance,omitempty" validate:"omitempty,gte=0"`
	Source      string   `json:"source" yaml:"source" validate:"oneof=manual import"`
	ExternalID  *string  `json:"external_id,omitempty" yaml:"external_id,omitempty"`
}

func (*Activity) Category() Category { return CategoryActivity }

// NewActivity creates a manually logged activity recorded now.
func NewActivity(activityType string) *Activity {
	return &Activity{Base: NewBase(), Timed: Timed{RecordedAt: time.Now()}, Type: activityType, Source: SourceManual}
}

// MedicationEntry logs one intake of a defined medication.
type MedicationEntry struct {
	Base         `yaml:",inline"`
	Timed        `yaml:",inline"`
	MedicationID uuid.UUID `json:"medication_id" yaml:"medication_id"`
	Amount       string    `json:"amount" yaml:"amount" validate:"required,max=50"`
}

func (*MedicationEntry) Category() Category { return CategoryMedication }

// NewMedicationEntry creates an intake of medicationID recorded now.
func NewMedicationEntry(medicationID uuid.UUID, amount string) *MedicationEntry {
	return &MedicationEntry{Base: NewBase(), Timed: Timed{RecordedAt: time.Now()}, MedicationID: medicationID, Amount: amount}
}

// MoodEntry is a mood and energy self-assessment.
type MoodEntry struct {
	Base   `yaml:",inline"`
	Timed  `yaml:",inline"`
	Mood   *int    `json:"mood" yaml:"mood,omitempty" validate:"omitempty,min=1,max=10"`
	Energy *int    `json:"energy" yaml:"energy,omitempty" validate:"omitempty,min=1,max=10"`
	Notes  *string `json:"notes" yaml:"notes,omitempty"`
}

func (*MoodEntry) Category() Category { return CategoryMood }

// NewMoodEntry creates a mood entry recorded now.
func NewMoodEntry(mood, energy *int) *MoodEntry {
	return &MoodEntry{Base: NewBase(), Timed: Timed{RecordedAt: time.Now()}, Mood: mood, Energy: energy}
}

// SleepEntry is the night's sleep for one day. The store keeps one per day.
type SleepEntry struct {
	Base          `yaml:",inline"`
	Dated         `yaml:",inline"`
	DurationHours float64 `json:"duration" yaml:"duration" validate:"gte=0,lte=24"`
	Quality       *int    `json:"quality" yaml:"quality,omitempty" validate:"omitempty,min=1,max=10"`
}

func (*SleepEntry) Category() Category { return CategorySleep }

// NewSleepEntry creates a sleep entry for day.
func NewSleepEntry(day Day, hours float64) *SleepEntry {
	return &SleepEntry{Base: NewBase(), Dated: Dated{Date: day}, DurationHours: hours}
}

// WaterEntry is one drink. A day can have any number of them.
type WaterEntry struct {
	Base     `yaml:",inline"`
	Dated    `yaml:",inline"`
	AmountMl int `json:"amount_ml" yaml:"amount_ml" validate:"gt=0"`
}

func (*WaterEntry) Category() Category { return CategoryWater }

// NewWaterEntry creates a water entry for day.
func NewWaterEntry(day Day, amountMl int) *WaterEntry {
	return &WaterEntry{Base: NewBase(), Dated: Dated{Date: day}, AmountMl: amountMl}
}

// Medication is a medication definition referenced by MedicationEntry.
type Medication struct {
	ID          uuid.UUID `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name" validate:"required,max=100"`
	Unit        string    `json:"unit" yaml:"unit" validate:"max=50"`
	CommonDoses string    `json:"common_dose" yaml:"common_dose" validate:"max=100"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// NewMedication creates a medication definition.
func NewMedication(name, unit, commonDoses string) *Medication {
	return &Medication{ID: uuid.New(), Name: name, Unit: unit, CommonDoses: commonDoses, CreatedAt: time.Now()}
}

// Marker is a lab marker definition with its reference range.
type Marker struct {
	ID        uuid.UUID `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name" validate:"required,max=100"`
	Unit      string    `json:"unit" yaml:"unit" validate:"max=20"`
	MinNorm   *float64  `json:"min_norm" yaml:"min_norm,omitempty"`
	MaxNorm   *float64  `json:"max_norm" yaml:"max_norm,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// NewMarker creates a lab marker definition.
func NewMarker(name, unit string, minNorm, maxNorm *float64) *Marker {
	return &Marker{ID: uuid.New(), Name: name, Unit: unit, MinNorm: minNorm, MaxNorm: maxNorm, CreatedAt: time.Now()}
}

// Profile holds the user's static details. A store keeps at most one.
type Profile struct {
	HeightCm     *float64  `json:"height_cm" yaml:"height_cm,omitempty" validate:"omitempty,gt=0,max=300"`
	Birthdate    *Day      `json:"birthdate" yaml:"birthdate,omitempty"`
	TargetWeight *float64  `json:"target_weight" yaml:"target_weight,omitempty" validate:"omitempty,gt=0"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}
