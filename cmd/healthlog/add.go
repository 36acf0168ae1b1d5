// ABOUTME: CLI command for adding health records of any category.
// ABOUTME: Maps positional values and --set pairs onto the record's fields.
package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthlog/internal/aggregate"
	"github.com/harperreed/healthlog/internal/models"
)

var (
	addAt    string
	addNotes string
	addSet   []string
)

// positional lists the fields filled by positional values, in order.
// The first field of each category is required.
var positional = map[models.Category][]string{
	models.CategoryLab:        {"name", "value", "unit"},
	models.CategoryVital:      {"sys", "dia", "pulse"},
	models.CategoryWeight:     {"weight"},
	models.CategorySteps:      {"count"},
	models.CategoryFood:       {"description"},
	models.CategoryActivity:   {"act_type", "duration", "distance"},
	models.CategoryMedication: {"medication", "amount"},
	models.CategoryMood:       {"mood", "energy"},
	models.CategorySleep:      {"duration", "quality"},
	models.CategoryWater:      {"amount_ml"},
}

// textFields hold strings; every other field is numeric.
var textFields = map[string]bool{
	"name": true, "unit": true, "description": true, "act_type": true,
	"amount": true, "notes": true, "source": true, "external_id": true,
	"medication": true, "medication_id": true,
}

var addCmd = &cobra.Command{
	Use:     "add <category> <value> [values...]",
	Aliases: []string{"a"},
	Short:   "Add a health record",
	Long: `Add a health record. Positional values fill these fields in order:

  lab         name value [unit]
  vital       sys dia [pulse]          (alias: bp)
  weight      weight
  steps       count                    (replaces the day's count)
  food        description
  activity    type [duration] [distance]
  medication  name-or-id amount        (define it first with 'med define')
  mood        mood [energy]
  sleep       hours [quality]          (replaces the day's sleep)
  water       amount_ml                (adds to the day's total)

Any other field can be set with --set field=value.

Examples:
  healthlog add weight 82.5 --set fat_percentage=18.2
  healthlog add vital 120 80 64 --at "2024-12-14 07:00"
  healthlog add food "Greek yogurt" --set calories=180 --set protein=17
  healthlog add mood 7 6 --notes "Good day"
  healthlog add sleep 7.5 8 --at 2024-12-14`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := parseCategoryArg(args[0])
		if err != nil {
			return err
		}

		data, err := positionalData(cat, args[1:])
		if err != nil {
			return err
		}
		if err := applySets(data, addSet); err != nil {
			return err
		}
		if addNotes != "" {
			data["notes"] = addNotes
		}
		if addAt != "" {
			if err := setWhen(cat, data, addAt); err != nil {
				return err
			}
		}
		if err := resolveMedication(data); err != nil {
			return err
		}

		rec, err := decodeData(cat, data, true)
		if err != nil {
			return err
		}
		models.FillTime(rec, now())

		if err := repo.CreateRecord(rec); err != nil {
			return fmt.Errorf("failed to create %s: %w", cat, err)
		}

		out := cmd.OutOrStdout()
		color.New(color.FgGreen).Fprintf(out, "✓ Added %s\n", cat)
		fmt.Fprintf(out, "  %s %s\n", faint(shortID(rec)), aggregate.FormatRecord(rec, nil))
		return nil
	},
}

// parseCategoryArg accepts category names plus the bp shorthand.
func parseCategoryArg(s string) (models.Category, error) {
	s = strings.ToLower(s)
	if s == "bp" {
		return models.CategoryVital, nil
	}
	cat, err := models.ParseCategory(s)
	if err != nil {
		return "", fmt.Errorf("%w\nValid categories: %s", err, categoryList())
	}
	return cat, nil
}

func categoryList() string {
	names := make([]string, len(models.AllCategories))
	for i, c := range models.AllCategories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func positionalData(cat models.Category, values []string) (map[string]any, error) {
	fields := positional[cat]
	if len(values) > len(fields) {
		return nil, fmt.Errorf("%s takes at most %d values: %s", cat, len(fields), strings.Join(fields, " "))
	}
	data := make(map[string]any, len(fields))
	for i, v := range values {
		val, err := fieldValue(fields[i], v)
		if err != nil {
			return nil, err
		}
		data[fields[i]] = val
	}
	return data, nil
}

// applySets overlays field=value pairs onto data.
func applySets(data map[string]any, sets []string) error {
	for _, kv := range sets {
		key, raw, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return fmt.Errorf("invalid --set %q (use field=value)", kv)
		}
		val, err := fieldValue(key, raw)
		if err != nil {
			return err
		}
		data[key] = val
	}
	return nil
}

// fieldValue converts a raw argument into its JSON value. An empty value
// clears the field.
func fieldValue(field, raw string) (any, error) {
	if raw == "" {
		return nil, nil
	}
	if textFields[field] {
		return raw, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %s", field, raw)
	}
	return f, nil
}

// setWhen stores the --at timestamp as recorded_at, or as date for
// date-only categories.
func setWhen(cat models.Category, data map[string]any, at string) error {
	t, err := parseTime(at)
	if err != nil {
		return fmt.Errorf("invalid timestamp: %s", at)
	}
	if cat.DateOnly() {
		data["date"] = models.DayOf(t).String()
	} else {
		data["recorded_at"] = t
	}
	return nil
}

// resolveMedication swaps a medication name or ID prefix for its ID.
func resolveMedication(data map[string]any) error {
	ref, ok := data["medication"].(string)
	if !ok {
		return nil
	}
	delete(data, "medication")
	med, err := repo.GetMedication(ref)
	if err != nil {
		return fmt.Errorf("medication %q: %w", ref, err)
	}
	data["medication_id"] = med.ID.String()
	return nil
}

func decodeData(cat models.Category, data map[string]any, fresh bool) (models.Record, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", cat, err)
	}
	if fresh {
		return models.DecodeNewRecord(cat, raw)
	}
	return models.DecodeRecord(cat, raw)
}

func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02 15:04",
		"2006-01-02T15:04",
		"2006-01-02",
		time.RFC3339,
	}
	for _, f := range formats {
		if t, err := time.ParseInLocation(f, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format")
}

func shortID(r models.Record) string {
	return r.Meta().ID.String()[:8]
}

func faint(s string) string {
	return color.New(color.Faint).Sprint(s)
}

func init() {
	addCmd.Flags().StringVar(&addAt, "at", "", "timestamp (YYYY-MM-DD HH:MM) or day for steps, sleep and water")
	addCmd.Flags().StringVar(&addNotes, "notes", "", "notes (mood)")
	addCmd.Flags().StringArrayVar(&addSet, "set", nil, "extra field as field=value (repeatable)")
	rootCmd.AddCommand(addCmd)
}
