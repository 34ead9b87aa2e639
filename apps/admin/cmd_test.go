package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campoalegre/unibus/core/audit"
	inmemdb "github.com/campoalegre/unibus/storage/database/inmem"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	out := new(bytes.Buffer)
	return &commandLine{
		auditRepo: inmemdb.NewAuditRepository(db),
		loc:       time.UTC,
		out:       out,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			} else if tt.wantErr != nil || tt.wantErrStr != "" {
				t.Errorf("cli.run() error = nil, want one")
			}
		})
	}
}

func Test_commandLine_run(t *testing.T) {
	cli, _ := setup(t)

	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
	})
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	runMigrationsFunc = func(_ context.Context, _ *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCLITests(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "trip_index", "sql"}},
	})
}

func Test_commandLine_auditLog(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	events := []audit.Event{
		{ID: "e1", Timestamp: base, Action: audit.ActionTripStarted, EntityType: audit.EntityTrip, EntityID: "t1"},
		{ID: "e2", Timestamp: base.Add(time.Minute), Action: audit.ActionManualCheckin, EntityType: audit.EntityTrip, EntityID: "t1"},
		{ID: "e3", Timestamp: base.Add(24 * time.Hour), Action: audit.ActionStudentCreated, EntityType: audit.EntityStudent, EntityID: "s1"},
	}
	for _, e := range events {
		if err := cli.auditRepo.AppendEvent(ctx, e); err != nil {
			t.Fatalf("AppendEvent() failed: %v", err)
		}
	}

	runCLITests(t, cli, []cliTest{
		{name: "bad from", args: []string{"auditlog", "-from", "yesterday"}, wantErrStr: `invalid -from: parsing time "yesterday" as "2006-01-02": cannot parse "yesterday" as "2006"`},
	})

	tests := []struct {
		name    string
		args    []string
		wantIDs []string
	}{
		{name: "all", args: []string{"auditlog"}, wantIDs: []string{"e3", "e2", "e1"}},
		{name: "by entity", args: []string{"auditlog", "-entity-type", "trip", "-entity-id", "t1"}, wantIDs: []string{"e2", "e1"}},
		{name: "limit", args: []string{"auditlog", "-limit", "1"}, wantIDs: []string{"e3"}},
		{name: "range", args: []string{"auditlog", "-from", "2025-03-10", "-to", "2025-03-11"}, wantIDs: []string{"e2", "e1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			if err := cli.run(append([]string{"admin"}, tt.args...)); err != nil {
				t.Fatalf("cli.run() error = %v", err)
			}
			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			if len(lines) != len(tt.wantIDs)+1 {
				t.Fatalf("output = %s", out.String())
			}
			for i, id := range tt.wantIDs {
				if !strings.Contains(lines[i], `"id":"`+id+`"`) {
					t.Errorf("line %d = %s; want event %s", i, lines[i], id)
				}
			}
		})
	}
}
