package schedulesvc_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/campoalegre/unibus/core"
	"github.com/campoalegre/unibus/core/operation"
	"github.com/campoalegre/unibus/core/registry"
	schedulesvc "github.com/campoalegre/unibus/services/schedule"
	testutil "github.com/campoalegre/unibus/tests"
)

func strPtr(s string) *string { return &s }

func TestCalendar(t *testing.T) {
	conf := core.NewTestConfig()
	n := schedulesvc.NewNotifier(nil, nil, conf, core.NopLogger{})

	day := operation.Day{ID: "d1", Date: "2025-03-10", PublishedAt: null.TimeFrom(time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC))}
	trips := []operation.Trip{
		{ID: "t1", DepartureTime: "06:30", Route: operation.RouteRef{Name: "Campo Alegre → UFAL"}, Vehicle: operation.VehicleRef{LicensePlate: "ABC-1234"}},
		{ID: "t2", DepartureTime: "18:00", Route: operation.RouteRef{Name: "UFAL → Campo Alegre"}, Vehicle: operation.VehicleRef{LicensePlate: "ABC-1234"}},
	}
	cal, err := n.Calendar(day, trips)
	require.NoError(t, err)

	assert.Contains(t, cal, "BEGIN:VCALENDAR")
	assert.Contains(t, cal, "METHOD:PUBLISH")
	assert.Equal(t, 2, strings.Count(cal, "BEGIN:VEVENT"))
	assert.Contains(t, cal, "UID:t1")
	assert.Contains(t, cal, "DTSTART:20250310T063000Z")
	assert.Contains(t, cal, "DTEND:20250310T080000Z")
	assert.Contains(t, cal, "DTSTAMP:20250309T120000Z")

	_, err = n.Calendar(day, []operation.Trip{{ID: "bad", DepartureTime: "6h30"}})
	assert.Error(t, err)
}

func TestMessage(t *testing.T) {
	conf := core.NewTestConfig()
	n := schedulesvc.NewNotifier(nil, nil, conf, core.NopLogger{})

	driver := registry.Driver{ID: "drv-001", Name: "José", Email: "jose@example.com"}
	trips := []operation.Trip{
		{ID: "t2", DepartureTime: "18:00", Route: operation.RouteRef{Name: "Volta"}},
		{ID: "t1", DepartureTime: "06:30", Route: operation.RouteRef{Name: "Ida"}},
	}
	msg, err := n.Message(operation.Day{Date: "2025-03-10"}, driver, trips)
	require.NoError(t, err)

	assert.Equal(t, "jose@example.com", msg.To[0].Address)
	assert.Equal(t, "Schedule for 2025-03-10", msg.Subject)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "schedule-2025-03-10.ics", msg.Attachments[0].Filename)

	data, ok := msg.TemplateData.(schedulesvc.ScheduleData)
	require.True(t, ok)
	require.Len(t, data.Trips, 2)
	assert.Equal(t, "06:30", data.Trips[0].DepartureTime, "sorted by departure")
	assert.Equal(t, "t2", trips[0].ID, "input left untouched")
}

func TestDayPublished(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := testutil.AdminContext()

	_, err := env.Registry.UpdateDriver(ctx, "drv-001", registry.UpdateDriver{Email: strPtr("jose@example.com")})
	require.NoError(t, err)

	day := env.CreateDay(t, "2025-03-10")
	env.AddTrip(t, day.ID, "veh-001", "drv-001", 0)
	env.AddTrip(t, day.ID, "veh-002", "drv-002", 0) // no email: skipped
	_, err = env.Operations.PublishDay(ctx, day.ID)
	require.NoError(t, err)

	sent := env.Mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "jose@example.com", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "2025-03-10")
	assert.Contains(t, sent[0].TextContent, "ABC-1234")
	assert.NotContains(t, sent[0].TextContent, "DEF-5678")
}
