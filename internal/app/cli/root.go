// Package cli implements cohortctl, the operator command line for the
// reading program: inspecting the program clock, committing and clearing
// assignment sets, checking profile access and issuing API tokens.
package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dalemusser/cohorthub/internal/app/system/daykey"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	MongoURI string
	Database string

	Timezone     string
	CutoffHour   int
	OffsetBefore int
	OffsetAfter  int

	// At pins the program clock (RFC 3339); empty means now.
	At string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// envOr returns the COHORTHUB_-prefixed environment value for key, or def.
func envOr(key, def string) string {
	if v := os.Getenv("COHORTHUB_" + key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv("COHORTHUB_" + key)); err == nil {
		return v
	}
	return def
}

// NewRootCommand creates the root command for cohortctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cohortctl",
		Short: "cohortctl - reading program operations",
		Long: `Operator tool for the cohort reading program.

Connection and clock settings default to the same COHORTHUB_* environment
variables the server reads.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVar(&opts.MongoURI, "mongo-uri", envOr("MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection string")
	pf.StringVar(&opts.Database, "db", envOr("MONGO_DATABASE", "cohorthub"), "MongoDB database name")
	pf.StringVar(&opts.Timezone, "timezone", envOr("PROGRAM_TIMEZONE", daykey.DefaultTimezone), "program timezone (IANA name)")
	pf.IntVar(&opts.CutoffHour, "cutoff-hour", envIntOr("DAY_CUTOFF_HOUR", daykey.DefaultCutoffHour), "local hour at which the logical day rolls over")
	pf.IntVar(&opts.OffsetBefore, "matching-offset-before", envIntOr("MATCHING_OFFSET_BEFORE_CUTOFF", daykey.DefaultMatchingOffsets.BeforeCutoff), "days the matching date trails before the cutoff")
	pf.IntVar(&opts.OffsetAfter, "matching-offset-after", envIntOr("MATCHING_OFFSET_AFTER_CUTOFF", daykey.DefaultMatchingOffsets.AfterCutoff), "days the matching date trails after the cutoff")
	pf.StringVar(&opts.At, "at", "", "evaluate as of this instant (RFC 3339) instead of now")

	cmd.AddCommand(NewDayKeyCommand(opts))
	cmd.AddCommand(NewMatchingCommand(opts))
	cmd.AddCommand(NewAccessCommand(opts))
	cmd.AddCommand(NewCohortCommand(opts))
	cmd.AddCommand(NewParticipantCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
