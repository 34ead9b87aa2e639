// Package schedulesvc emails drivers their trips when an operation day is published.
package schedulesvc

import (
	"context"
	"net/mail"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/pkg/errors"

	"github.com/campoalegre/unibus/core"
	"github.com/campoalegre/unibus/core/operation"
	"github.com/campoalegre/unibus/core/registry"
)

// TripDuration is the calendar length of a trip.
const TripDuration = 90 * time.Minute

const templateName = "driver_schedule"

type (
	Drivers interface {
		GetDriver(ctx context.Context, id string) (registry.Driver, error)
	}

	TripLine struct {
		DepartureTime string
		RouteName     string
		VehiclePlate  string
	}

	ScheduleData struct {
		DriverName string
		Date       string
		Trips      []TripLine
	}

	Notifier struct {
		drivers Drivers
		mailer  core.EmailService
		appName string
		loc     *time.Location
		logger  core.Logger
	}
)

var _ operation.Notifier = (*Notifier)(nil)

func NewNotifier(drivers Drivers, mailer core.EmailService, conf *core.Config, logger core.Logger) *Notifier {
	loc := conf.TimeZone
	if loc == nil {
		loc = time.UTC
	}
	return &Notifier{drivers: drivers, mailer: mailer, appName: conf.AppName, loc: loc, logger: logger}
}

// DayPublished sends one email per driver with an email address, listing their trips of the day.
func (n *Notifier) DayPublished(ctx context.Context, day operation.Day, trips []operation.Trip) {
	byDriver := make(map[string][]operation.Trip)
	order := make([]string, 0)
	for _, t := range trips {
		if _, ok := byDriver[t.Driver.ID]; !ok {
			order = append(order, t.Driver.ID)
		}
		byDriver[t.Driver.ID] = append(byDriver[t.Driver.ID], t)
	}

	messages := make([]*core.EmailMessage, 0, len(order))
	for _, driverID := range order {
		driver, err := n.drivers.GetDriver(ctx, driverID)
		if err != nil {
			n.logger.Warn("schedule: getting driver "+driverID, err, core.ActorFromContext(ctx))
			continue
		}
		if driver.Email == "" {
			continue
		}
		msg, err := n.Message(day, driver, byDriver[driverID])
		if err != nil {
			n.logger.Error("schedule: building message for driver "+driverID, err, core.ActorFromContext(ctx))
			continue
		}
		messages = append(messages, msg)
	}
	if len(messages) > 0 {
		n.mailer.SendMessages(messages...)
	}
}

// Message builds the schedule email of driver, with the trips attached as an iCalendar file.
func (n *Notifier) Message(day operation.Day, driver registry.Driver, trips []operation.Trip) (*core.EmailMessage, error) {
	trips = append([]operation.Trip{}, trips...)
	sort.Slice(trips, func(i, j int) bool { return trips[i].DepartureTime < trips[j].DepartureTime })

	data := ScheduleData{DriverName: driver.Name, Date: day.Date, Trips: make([]TripLine, 0, len(trips))}
	for _, t := range trips {
		data.Trips = append(data.Trips, TripLine{DepartureTime: t.DepartureTime, RouteName: t.Route.Name, VehiclePlate: t.Vehicle.LicensePlate})
	}

	cal, err := n.Calendar(day, trips)
	if err != nil {
		return nil, err
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: driver.Name, Address: driver.Email}},
		Subject:      "Schedule for " + day.Date,
		TemplateName: templateName,
		TemplateData: data,
	}
	if err = msg.Attach(strings.NewReader(cal), "schedule-"+day.Date+".ics", "text/calendar; charset=utf-8; method=PUBLISH"); err != nil {
		return nil, errors.Wrap(err, "attaching calendar")
	}
	return msg, nil
}

// Calendar returns the trips as a serialized iCalendar.
func (n *Notifier) Calendar(day operation.Day, trips []operation.Trip) (string, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//" + n.appName + "//schedule//EN")

	stamp := time.Now().UTC()
	if day.PublishedAt.Valid {
		stamp = day.PublishedAt.Time.UTC()
	}
	for _, t := range trips {
		start, err := time.ParseInLocation("2006-01-02 15:04", day.Date+" "+t.DepartureTime, n.loc)
		if err != nil {
			return "", errors.Wrapf(err, "parsing departure of trip %s", t.ID)
		}
		event := cal.AddEvent(t.ID)
		event.SetDtStampTime(stamp)
		event.SetStartAt(start)
		event.SetEndAt(start.Add(TripDuration))
		event.SetSummary(t.Route.Name)
		event.SetLocation(t.Vehicle.LicensePlate)
		event.SetDescription("Vehicle " + t.Vehicle.LicensePlate + ", direction " + t.Route.Direction)
	}
	return cal.Serialize(), nil
}
