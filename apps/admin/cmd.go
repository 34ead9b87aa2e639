package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campoalegre/unibus/core"
	"github.com/campoalegre/unibus/core/audit"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db        *sqlx.DB
	auditRepo audit.Repository
	loc       *time.Location
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, version, redo, ...)")
	_, _ = fmt.Fprintln(cli.out, "  auditlog [-entity-type TYPE] [-entity-id ID] [-action ACTION] [-user USER_ID] [-from DATE] [-to DATE] [-limit N]")
	_, _ = fmt.Fprintln(cli.out, "           - print audit events as JSON lines, newest first")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	auditCmd := flag.NewFlagSet("auditlog", flag.ContinueOnError)
	auditCmd.SetOutput(cli.out)
	entityType := auditCmd.String("entity-type", "", "Only events of this entity type (trip, student, vehicle, ...).")
	entityID := auditCmd.String("entity-id", "", "Only events of this entity.")
	action := auditCmd.String("action", "", "Only events with this action.")
	userID := auditCmd.String("user", "", "Only events of this user.")
	from := auditCmd.String("from", "", "Events at or after this time (RFC3339 or YYYY-MM-DD).")
	to := auditCmd.String("to", "", "Events before this time (RFC3339 or YYYY-MM-DD).")
	limit := auditCmd.Int("limit", core.DefaultPageLimit, "Maximum number of events.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "auditlog":
		if err := auditCmd.Parse(args[2:]); err != nil {
			return err
		}
		filter := audit.Filter{EntityType: *entityType, EntityID: *entityID, Action: *action, UserID: *userID}
		var err error
		if filter.From, err = parseTime(*from, cli.loc); err != nil {
			return fmt.Errorf("invalid -from: %w", err)
		}
		if filter.To, err = parseTime(*to, cli.loc); err != nil {
			return fmt.Errorf("invalid -to: %w", err)
		}
		return cli.auditLog(filter, *limit)
	default:
		cli.printUsage()
		return errHelp
	}
}

func parseTime(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// auditLog prints the newest events matching filter.
func (cli *commandLine) auditLog(filter audit.Filter, limit int) error {
	filter.Clean()
	res, err := cli.auditRepo.QueryEvents(cmdContext(), filter, core.Page{Page: 1, Limit: limit})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cli.out)
	for _, e := range res.Data {
		if err = enc.Encode(e); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(cli.out, "%d of %d events\n", len(res.Data), res.Total)
	return err
}
