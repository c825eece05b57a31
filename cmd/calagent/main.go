// Command calagent is a small CLI over the calendar assistant core. It wires
// the env profile, the local SQLite-backed calendar provider and the
// operation handlers; each subcommand maps onto one assistant operation.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jshargo/google-calendar-agent/internal/profile"
	"github.com/jshargo/google-calendar-agent/plugin/assistant"
	"github.com/jshargo/google-calendar-agent/plugin/ics"
	"github.com/jshargo/google-calendar-agent/server/service/calendar"
	"github.com/jshargo/google-calendar-agent/store"
	"github.com/jshargo/google-calendar-agent/store/db"
)

const usage = `Usage: calagent <command> [flags]

Commands:
  create   create a calendar event
  list     list calendar events
  update   update a calendar event
  cancel   cancel a calendar event
  import   import events from an ICS file
  export   export all events to an ICS file
`

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	p := &profile.Profile{Mode: "dev"}
	p.FromEnv()
	if err := p.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	driver, err := db.NewDBDriver(p)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	st := store.New(driver, p)
	defer st.Close()

	svc := calendar.NewLocalService(st, p.InstanceURL)
	agent := assistant.New(svc, p.Location()).
		WithDefaultDuration(time.Duration(p.DefaultEventMinutes) * time.Minute)

	ctx := context.Background()
	command, args := os.Args[1], os.Args[2:]

	var exitCode int
	switch command {
	case "create":
		exitCode = runCreate(ctx, agent, args)
	case "list":
		exitCode = runList(ctx, agent, args)
	case "update":
		exitCode = runUpdate(ctx, agent, args)
	case "cancel":
		exitCode = runCancel(ctx, agent, args)
	case "import":
		exitCode = runImport(ctx, svc, p, args)
	case "export":
		exitCode = runExport(ctx, svc, p, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		exitCode = 2
	}
	os.Exit(exitCode)
}

func parseRFC3339(value string) (time.Time, error) {
	return time.Parse(time.RFC3339, value)
}

func printResult(res assistant.OperationResult) int {
	fmt.Println(res.Message)
	if res.Success {
		return 0
	}
	return 1
}

func runCreate(ctx context.Context, agent *assistant.Assistant, args []string) int {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	summary := fs.String("summary", "", "event title")
	start := fs.String("start", "", "start date/time expression")
	end := fs.String("end", "", "end date/time expression")
	duration := fs.Int("duration", 0, "duration in minutes")
	description := fs.String("description", "", "event description")
	location := fs.String("location", "", "event location")
	fs.Parse(args)

	req := &assistant.CreateEventRequest{
		Summary:     *summary,
		StartTime:   *start,
		Description: *description,
		Location:    *location,
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "end":
			req.EndTime = end
		case "duration":
			req.DurationMinutes = duration
		}
	})

	return printResult(agent.CreateEvent(ctx, req))
}

func runList(ctx context.Context, agent *assistant.Assistant, args []string) int {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	from := fs.String("from", "", "start of the range (defaults to now)")
	to := fs.String("to", "", "end of the range")
	query := fs.String("query", "", "free-text search")
	max := fs.Int("max", 0, "maximum number of events")
	fs.Parse(args)

	return printResult(agent.ListEvents(ctx, &assistant.ListEventsRequest{
		TimeMin:    *from,
		TimeMax:    *to,
		Query:      *query,
		MaxResults: *max,
	}))
}

func runUpdate(ctx context.Context, agent *assistant.Assistant, args []string) int {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	id := fs.String("id", "", "event ID")
	summary := fs.String("summary", "", "new title")
	start := fs.String("start", "", "new start date/time expression")
	end := fs.String("end", "", "new end date/time expression")
	duration := fs.Int("duration", 0, "new duration in minutes")
	description := fs.String("description", "", "new description (empty clears)")
	location := fs.String("location", "", "new location (empty clears)")
	fs.Parse(args)

	req := &assistant.UpdateEventRequest{EventID: *id}
	// Only flags the user actually set become part of the patch; an
	// explicitly empty -description or -location clears the field.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "summary":
			req.NewSummary = assistant.SetField(*summary)
		case "description":
			req.NewDescription = assistant.SetField(*description)
		case "location":
			req.NewLocation = assistant.SetField(*location)
		case "start":
			req.NewStartTime = start
		case "end":
			req.NewEndTime = end
		case "duration":
			req.NewDurationMinutes = duration
		}
	})

	return printResult(agent.UpdateEvent(ctx, req))
}

func runCancel(ctx context.Context, agent *assistant.Assistant, args []string) int {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	id := fs.String("id", "", "event ID")
	notify := fs.Bool("notify", true, "notify attendees")
	fs.Parse(args)

	return printResult(agent.CancelEvent(ctx, &assistant.CancelEventRequest{
		EventID:           *id,
		SendNotifications: *notify,
	}))
}

func runImport(ctx context.Context, svc calendar.Service, p *profile.Profile, args []string) int {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	file := fs.String("file", "", "path to the ICS file")
	fs.Parse(args)

	if *file == "" {
		fmt.Fprintln(os.Stderr, "import requires -file")
		return 2
	}
	body, err := os.ReadFile(*file)
	if err != nil {
		slog.Error("failed to read ICS file", "file", *file, "error", err)
		return 1
	}

	drafts, err := ics.Import(body, p.Location())
	if err != nil {
		slog.Error("failed to parse ICS file", "file", *file, "error", err)
		return 1
	}

	imported := 0
	for _, draft := range drafts {
		if _, err := svc.InsertEvent(ctx, draft); err != nil {
			slog.Error("failed to import event", "summary", draft.Summary, "error", err)
			continue
		}
		imported++
	}
	fmt.Printf("Imported %d of %d events.\n", imported, len(drafts))
	return 0
}

func runExport(ctx context.Context, svc calendar.Service, p *profile.Profile, args []string) int {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	file := fs.String("file", "", "path to write the ICS file")
	from := fs.String("from", "1970-01-01T00:00:00Z", "start of the export range (RFC 3339)")
	fs.Parse(args)

	if *file == "" {
		fmt.Fprintln(os.Stderr, "export requires -file")
		return 2
	}

	timeMin, err := parseRFC3339(*from)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -from value: %v\n", err)
		return 2
	}

	summaries, err := svc.ListEvents(ctx, &calendar.ListRequest{TimeMin: timeMin})
	if err != nil {
		slog.Error("failed to list events", "error", err)
		return 1
	}

	// Recurring events list once per occurrence; export each UID once.
	seen := make(map[string]bool, len(summaries))
	snapshots := make([]*calendar.EventSnapshot, 0, len(summaries))
	for _, summary := range summaries {
		if seen[summary.ID] {
			continue
		}
		seen[summary.ID] = true
		snapshot, err := svc.GetEvent(ctx, summary.ID)
		if err != nil {
			slog.Error("failed to load event", "event_id", summary.ID, "error", err)
			continue
		}
		snapshots = append(snapshots, snapshot)
	}

	body, err := ics.Export(snapshots)
	if err != nil {
		slog.Error("failed to render ICS", "error", err)
		return 1
	}
	if err := os.WriteFile(*file, body, 0o644); err != nil {
		slog.Error("failed to write ICS file", "file", *file, "error", err)
		return 1
	}
	fmt.Printf("Exported %d events to %s.\n", len(snapshots), *file)
	return 0
}
