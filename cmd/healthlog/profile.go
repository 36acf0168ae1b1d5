// ABOUTME: Profile command showing and updating height, birthdate and target weight.
// ABOUTME: Only flags given to "profile set" change; an empty value clears a field.
package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthlog/internal/models"
	"github.com/harperreed/healthlog/internal/storage"
)

var (
	profileHeight    string
	profileBirthdate string
	profileTarget    string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show your profile",
	Long: `Show or update your profile.

EXAMPLES:

  healthlog profile
  healthlog profile set --height 182 --birthdate 1985-04-12
  healthlog profile set --target-weight 78
  healthlog profile set --target-weight ""   # clear`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		p, err := repo.GetProfile()
		if errors.Is(err, storage.ErrNotFound) {
			fmt.Fprintln(out, "No profile saved.")
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Height         %s\n", optFloatUnit(p.HeightCm, "cm"))
		if p.Birthdate != nil {
			fmt.Fprintf(out, "Birthdate      %s (age %d)\n", p.Birthdate, ageOn(*p.Birthdate, models.Today(now)))
		} else {
			fmt.Fprintln(out, "Birthdate      -")
		}
		fmt.Fprintf(out, "Target weight  %s\n", optFloatUnit(p.TargetWeight, "kg"))
		return nil
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update profile fields",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if !flags.Changed("height") && !flags.Changed("birthdate") && !flags.Changed("target-weight") {
			return fmt.Errorf("nothing to change: use --height, --birthdate or --target-weight")
		}

		p, err := repo.GetProfile()
		if errors.Is(err, storage.ErrNotFound) {
			p, err = &models.Profile{}, nil
		}
		if err != nil {
			return err
		}

		if flags.Changed("height") {
			if p.HeightCm, err = optionalFloat("height", profileHeight); err != nil {
				return err
			}
		}
		if flags.Changed("target-weight") {
			if p.TargetWeight, err = optionalFloat("target-weight", profileTarget); err != nil {
				return err
			}
		}
		if flags.Changed("birthdate") {
			p.Birthdate = nil
			if profileBirthdate != "" {
				d, err := models.ParseDay(profileBirthdate)
				if err != nil {
					return fmt.Errorf("invalid --birthdate: %w", err)
				}
				p.Birthdate = &d
			}
		}
		p.UpdatedAt = now()

		if err := repo.SaveProfile(p); err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ Saved profile")
		return nil
	},
}

// ageOn returns the age in whole years on day.
func ageOn(birth, day models.Day) int {
	age := day.Year - birth.Year
	if day.Month < birth.Month || (day.Month == birth.Month && day.Day < birth.Day) {
		age--
	}
	return age
}

func optFloatUnit(v *float64, unit string) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + " " + unit
}

func init() {
	profileSetCmd.Flags().StringVar(&profileHeight, "height", "", "height in cm")
	profileSetCmd.Flags().StringVar(&profileBirthdate, "birthdate", "", "birthdate (YYYY-MM-DD)")
	profileSetCmd.Flags().StringVar(&profileTarget, "target-weight", "", "target weight in kg")
	profileCmd.AddCommand(profileSetCmd)
	rootCmd.AddCommand(profileCmd)
}
