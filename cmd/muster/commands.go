// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/muster/fleet"
	"github.com/bureau-foundation/muster/lib/ipc"
)

// proposeParams holds the flags of the propose command.
type proposeParams struct {
	category        string
	formUp          string
	title           string
	fields          []string
	hidden          bool
	disableReminder bool
}

func proposeCommand(socket *string) *command {
	var params proposeParams
	return &command{
		name:    "propose",
		summary: "Propose a new fleet",
		usage:   "muster propose --category <id> --time <when> --title <title> [--field name=value]...",
		flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("propose", pflag.ContinueOnError)
			flags.StringVar(&params.category, "category", "", "category ID from the policy document")
			flags.StringVar(&params.formUp, "time", "", "form-up time: RFC 3339, or relative like +2h30m")
			flags.StringVar(&params.title, "title", "", "fleet title")
			flags.StringArrayVar(&params.fields, "field", nil, "detail field as name=value, repeatable")
			flags.BoolVar(&params.hidden, "hidden", false, "suppress the creation announcement")
			flags.BoolVar(&params.disableReminder, "no-reminder", false, "opt out of the category's reminder")
			return flags
		},
		run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("unexpected arguments %v", args)
			}
			if params.category == "" || params.formUp == "" || params.title == "" {
				return fmt.Errorf("--category, --time, and --title are required")
			}
			formUp, err := parseFormUp(params.formUp, time.Now())
			if err != nil {
				return err
			}
			details, err := buildDetails(params.title, params.fields)
			if err != nil {
				return err
			}
			response, err := callService(*socket, ipc.Request{
				Action:          ipc.ActionPropose,
				CategoryID:      params.category,
				FormUp:          &formUp,
				Details:         &details,
				Hidden:          params.hidden,
				DisableReminder: params.disableReminder,
			})
			if err != nil {
				return err
			}
			if !response.OK {
				return responseError(response)
			}
			fmt.Printf("fleet %d scheduled: %s at %s\n",
				response.Fleet.ID, response.Fleet.Details.Title,
				response.Fleet.FormUp.UTC().Format(time.RFC3339))
			return nil
		},
	}
}

func rescheduleCommand(socket *string) *command {
	var (
		fleetID int64
		formUp  string
	)
	return &command{
		name:    "reschedule",
		summary: "Move a fleet's form-up time",
		usage:   "muster reschedule --fleet <id> --time <when>",
		flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("reschedule", pflag.ContinueOnError)
			flags.Int64Var(&fleetID, "fleet", 0, "fleet ID")
			flags.StringVar(&formUp, "time", "", "new form-up time: RFC 3339, or relative like +2h30m")
			return flags
		},
		run: func(args []string) error {
			if fleetID == 0 || formUp == "" {
				return fmt.Errorf("--fleet and --time are required")
			}
			when, err := parseFormUp(formUp, time.Now())
			if err != nil {
				return err
			}
			response, err := callService(*socket, ipc.Request{
				Action:  ipc.ActionReschedule,
				FleetID: fleetID,
				FormUp:  &when,
			})
			if err != nil {
				return err
			}
			if !response.OK {
				return responseError(response)
			}
			fmt.Printf("fleet %d moved to %s (%s)\n",
				response.Fleet.ID,
				response.Fleet.FormUp.UTC().Format(time.RFC3339),
				response.Fleet.Status)
			return nil
		},
	}
}

func editCommand(socket *string) *command {
	var (
		fleetID int64
		title   string
		fields  []string
	)
	return &command{
		name:    "edit",
		summary: "Replace a fleet's details",
		usage:   "muster edit --fleet <id> --title <title> [--field name=value]...",
		flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("edit", pflag.ContinueOnError)
			flags.Int64Var(&fleetID, "fleet", 0, "fleet ID")
			flags.StringVar(&title, "title", "", "new fleet title")
			flags.StringArrayVar(&fields, "field", nil, "detail field as name=value, repeatable")
			return flags
		},
		run: func(args []string) error {
			if fleetID == 0 || title == "" {
				return fmt.Errorf("--fleet and --title are required")
			}
			details, err := buildDetails(title, fields)
			if err != nil {
				return err
			}
			response, err := callService(*socket, ipc.Request{
				Action:  ipc.ActionEdit,
				FleetID: fleetID,
				Details: &details,
			})
			if err != nil {
				return err
			}
			if !response.OK {
				return responseError(response)
			}
			fmt.Printf("fleet %d updated\n", response.Fleet.ID)
			return nil
		},
	}
}

func cancelCommand(socket *string) *command {
	var fleetID int64
	return &command{
		name:    "cancel",
		summary: "Cancel a fleet",
		usage:   "muster cancel --fleet <id>",
		flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("cancel", pflag.ContinueOnError)
			flags.Int64Var(&fleetID, "fleet", 0, "fleet ID")
			return flags
		},
		run: func(args []string) error {
			if fleetID == 0 {
				return fmt.Errorf("--fleet is required")
			}
			response, err := callService(*socket, ipc.Request{
				Action:  ipc.ActionCancel,
				FleetID: fleetID,
			})
			if err != nil {
				return err
			}
			if !response.OK {
				return responseError(response)
			}
			fmt.Printf("fleet %d cancelled\n", response.Fleet.ID)
			return nil
		},
	}
}

func listCommand(socket *string) *command {
	var categories []string
	return &command{
		name:    "list",
		summary: "List upcoming fleets",
		usage:   "muster list [--category <id>]...",
		flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flags.StringArrayVar(&categories, "category", nil, "restrict to a category, repeatable")
			return flags
		},
		run: func(args []string) error {
			response, err := callService(*socket, ipc.Request{
				Action:     ipc.ActionList,
				Categories: categories,
			})
			if err != nil {
				return err
			}
			if !response.OK {
				return responseError(response)
			}
			if len(response.Fleets) == 0 {
				fmt.Fprintln(os.Stderr, "no upcoming fleets")
				return nil
			}
			writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(writer, "ID\tCATEGORY\tFORM-UP\tIN\tSTATUS\tTITLE\n")
			for _, view := range response.Fleets {
				fmt.Fprintf(writer, "%d\t%s\t%s\t%s\t%s\t%s\n",
					view.ID,
					view.CategoryID,
					view.FormUp.UTC().Format("2006-01-02 15:04"),
					view.Countdown.Round(time.Minute),
					view.Status,
					view.Details.Title)
			}
			return writer.Flush()
		},
	}
}

func statusCommand(socket *string) *command {
	return &command{
		name:    "status",
		summary: "Show service status",
		usage:   "muster status",
		run: func(args []string) error {
			response, err := callService(*socket, ipc.Request{Action: ipc.ActionStatus})
			if err != nil {
				return err
			}
			if !response.OK {
				return responseError(response)
			}
			status := response.Status
			writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(writer, "user\t%s\n", status.UserID)
			fmt.Fprintf(writer, "scope\t%s\n", status.Scope)
			fmt.Fprintf(writer, "categories\t%d\n", status.Categories)
			fmt.Fprintf(writer, "active fleets\t%d\n", status.ActiveFleets)
			fmt.Fprintf(writer, "dispatch interval\t%s\n", status.DispatchInterval)
			fmt.Fprintf(writer, "summary schedule\t%s\n", status.SummarySchedule)
			fmt.Fprintf(writer, "started\t%s\n", status.StartedAt.UTC().Format(time.RFC3339))
			return writer.Flush()
		},
	}
}

// parseFormUp accepts an absolute RFC 3339 time or a relative offset
// like "+2h30m" from now.
func parseFormUp(value string, now time.Time) (time.Time, error) {
	if strings.HasPrefix(value, "+") {
		offset, err := time.ParseDuration(value[1:])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid relative time %q: %w", value, err)
		}
		return now.Add(offset).UTC(), nil
	}
	when, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q (want RFC 3339 or +duration): %w", value, err)
	}
	return when.UTC(), nil
}

// buildDetails assembles the detail payload from the title and
// repeated name=value field flags.
func buildDetails(title string, fields []string) (fleet.Details, error) {
	details := fleet.Details{Title: title}
	for _, raw := range fields {
		name, value, ok := strings.Cut(raw, "=")
		if !ok || name == "" {
			return fleet.Details{}, fmt.Errorf("invalid --field %q (want name=value)", raw)
		}
		details.Fields = append(details.Fields, fleet.FieldValue{Name: name, Value: value})
	}
	return details, nil
}
