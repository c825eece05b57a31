package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jshargo/google-calendar-agent/store"
)

func (d *DB) CreateEvent(ctx context.Context, create *store.Event) (*store.Event, error) {
	fields := []string{
		"uid", "summary", "description", "location",
		"start_ts", "end_ts", "all_day", "timezone", "recurrence_rule",
	}
	placeholderValues := []any{
		create.UID, create.Summary, create.Description, create.Location,
		create.StartTs, create.EndTs, create.AllDay, create.Timezone, create.RecurrenceRule,
	}

	stmt := `INSERT INTO event (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(placeholderValues)) + `)
		RETURNING id, created_ts, updated_ts`

	if err := d.db.QueryRowContext(ctx, stmt, placeholderValues...).Scan(
		&create.ID,
		&create.CreatedTs,
		&create.UpdatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return create, nil
}

func (d *DB) ListEvents(ctx context.Context, find *store.FindEvent) ([]*store.Event, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "event.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "event.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.EndTs; v != nil {
		// Overlap: the event starts before the window closes...
		where, args = append(where, "event.start_ts < "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.StartTs; v != nil {
		// ...and ends after it opens. Recurring events are kept regardless
		// of their base end; the service expands them into the window.
		where, args = append(where, "(event.end_ts > "+placeholder(len(args)+1)+" OR event.recurrence_rule IS NOT NULL)"), append(args, *v)
	}

	query := `
		SELECT
			id, uid, created_ts, updated_ts,
			summary, description, location,
			start_ts, end_ts, all_day, timezone, recurrence_rule
		FROM event
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY event.start_ts ASC`

	if v := find.Limit; v != nil {
		query += fmt.Sprintf(" LIMIT %d", *v)
		if v := find.Offset; v != nil {
			query += fmt.Sprintf(" OFFSET %d", *v)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Event, 0)
	for rows.Next() {
		var event store.Event
		var recurrenceRule sql.NullString
		if err := rows.Scan(
			&event.ID,
			&event.UID,
			&event.CreatedTs,
			&event.UpdatedTs,
			&event.Summary,
			&event.Description,
			&event.Location,
			&event.StartTs,
			&event.EndTs,
			&event.AllDay,
			&event.Timezone,
			&recurrenceRule,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if recurrenceRule.Valid {
			event.RecurrenceRule = &recurrenceRule.String
		}
		list = append(list, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return list, nil
}

func (d *DB) UpdateEvent(ctx context.Context, update *store.UpdateEvent) error {
	set, args := []string{}, []any{}

	if v := update.Summary; v != nil {
		set, args = append(set, "summary = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Description; v != nil {
		set, args = append(set, "description = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Location; v != nil {
		set, args = append(set, "location = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.StartTs; v != nil {
		set, args = append(set, "start_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.EndTs; v != nil {
		set, args = append(set, "end_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.AllDay; v != nil {
		set, args = append(set, "all_day = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Timezone; v != nil {
		set, args = append(set, "timezone = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.RecurrenceRule; v != nil {
		set, args = append(set, "recurrence_rule = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(set) == 0 {
		return nil
	}

	set = append(set, "updated_ts = strftime('%s', 'now')")
	args = append(args, update.ID)

	stmt := `UPDATE event SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args))
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	return nil
}

func (d *DB) DeleteEvent(ctx context.Context, delete *store.DeleteEvent) error {
	stmt := `DELETE FROM event WHERE id = ?`
	result, err := d.db.ExecContext(ctx, stmt, delete.ID)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if _, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	return nil
}
