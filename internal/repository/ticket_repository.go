package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketOrder selects the storage-level ordering of a listing.
type TicketOrder int

const (
	OrderCreatedDesc TicketOrder = iota
	OrderUpdatedDesc
)

// TicketFilter narrows ticket listings and counts.
type TicketFilter struct {
	CustomerID      *string
	ExcludeStatuses []domain.TicketStatus
	Order           TicketOrder
}

// NoteAppendFunc runs while the ticket is locked against other note appends.
// It may rewrite existing notes' NoteType and returns the note to insert.
type NoteAppendFunc func(ticket *domain.Ticket) (*domain.Note, error)

// TicketRepository encapsulates ticket and note persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByTicketID(ctx context.Context, code string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountByStatus(ctx context.Context, filter TicketFilter) (map[domain.TicketStatus]int, error)
	AppendNote(ctx context.Context, ticketID string, fn NoteAppendFunc) (*domain.Note, error)
	BackfillNoteTypes(ctx context.Context) (int64, error)
	MaxSequentialCode(ctx context.Context, prefix string) (int64, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_id, title, description, status, customer_id, customer_name,
               customer_email, created_at, updated_at`

const noteColumns = `id, ticket_id, text, author_id, author_name, author_email, author_role,
               added_at, note_type`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_id, title, description, status, customer_id, customer_name, customer_email)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.TicketID,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.CustomerID,
		ticket.CustomerName,
		ticket.CustomerEmail,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	if ticket.Notes == nil {
		ticket.Notes = []domain.Note{}
	}
	return nil
}

// Update persists the mutable part of a ticket, which is only its status.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, updated_at=NOW()
        WHERE id=$2
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query, ticket.Status, ticket.ID).Scan(&ticket.UpdatedAt)
	return translate(err)
}

// Delete removes the ticket; notes go with it through ON DELETE CASCADE.
func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, r.pool, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
}

func (r *ticketRepository) GetByTicketID(ctx context.Context, code string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, r.pool, `SELECT `+ticketColumns+` FROM tickets WHERE ticket_id=$1`, code)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, q querier, query string, arg any) (*domain.Ticket, error) {
	ticket, err := scanTicket(q.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, translate(err)
	}
	notes, err := loadNotes(ctx, q, []string{ticket.ID})
	if err != nil {
		return nil, err
	}
	ticket.Notes = notes[ticket.ID]
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	where, args := filterClause(filter)
	order := "created_at DESC"
	if filter.Order == OrderUpdatedDesc {
		order = "updated_at DESC"
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY %s`, ticketColumns, where, order)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(tickets))
	for i := range tickets {
		ids[i] = tickets[i].ID
	}
	notes, err := loadNotes(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range tickets {
		tickets[i].Notes = notes[tickets[i].ID]
	}
	return tickets, nil
}

func (r *ticketRepository) CountByStatus(ctx context.Context, filter TicketFilter) (map[domain.TicketStatus]int, error) {
	where, args := filterClause(filter)
	query := fmt.Sprintf(`SELECT status, COUNT(*) FROM tickets WHERE %s GROUP BY status`, where)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[domain.TicketStatus]int{}
	for rows.Next() {
		var (
			status domain.TicketStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// AppendNote locks the ticket row for the length of the transaction, so
// concurrent appends on one ticket serialize and none is lost.
func (r *ticketRepository) AppendNote(ctx context.Context, ticketID string, fn NoteAppendFunc) (*domain.Note, error) {
	var note *domain.Note
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		ticket, err := r.fetchSingle(ctx, tx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1 FOR UPDATE`, ticketID)
		if err != nil {
			return err
		}

		legacy := make(map[string]struct{})
		for _, n := range ticket.Notes {
			if n.IsLegacy() {
				legacy[n.ID] = struct{}{}
			}
		}

		note, err = fn(ticket)
		if err != nil {
			return err
		}

		for _, n := range ticket.Notes {
			if _, wasLegacy := legacy[n.ID]; !wasLegacy || n.IsLegacy() {
				continue
			}
			if _, err := tx.Exec(ctx,
				`UPDATE ticket_notes SET note_type=$1 WHERE id=$2 AND note_type IS NULL`,
				n.NoteType, n.ID,
			); err != nil {
				return err
			}
		}

		const insert = `
            INSERT INTO ticket_notes (ticket_id, position, text, author_id, author_name, author_email,
                                      author_role, added_at, note_type)
            SELECT $1, COALESCE(MAX(position), 0) + 1, $2, $3, $4, $5, $6, $7, $8
            FROM ticket_notes WHERE ticket_id=$1
            RETURNING id`
		if err := tx.QueryRow(ctx, insert,
			ticket.ID,
			note.Text,
			note.AddedBy.ID,
			note.AddedBy.Name,
			note.AddedBy.Email,
			note.AddedBy.Role,
			note.AddedAt,
			note.NoteType,
		).Scan(&note.ID); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `UPDATE tickets SET updated_at=NOW() WHERE id=$1`, ticket.ID)
		return err
	})
	if err != nil {
		return nil, translate(err)
	}
	return note, nil
}

func (r *ticketRepository) BackfillNoteTypes(ctx context.Context) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `UPDATE ticket_notes SET note_type='customer' WHERE note_type IS NULL`)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// MaxSequentialCode returns the highest counter value among stored codes of
// the form prefix+digits, or 0 when there are none.
func (r *ticketRepository) MaxSequentialCode(ctx context.Context, prefix string) (int64, error) {
	pattern := `^` + regexp.QuoteMeta(prefix) + `([0-9]+)$`
	var value int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(substring(ticket_id FROM $1::text)::BIGINT), 0) FROM tickets`,
		pattern,
	).Scan(&value)
	return value, translate(err)
}

func filterClause(filter TicketFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if len(filter.ExcludeStatuses) > 0 {
		placeholders := make([]string, len(filter.ExcludeStatuses))
		for i, status := range filter.ExcludeStatuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status NOT IN (%s)", strings.Join(placeholders, ",")))
	}
	return strings.Join(clauses, " AND "), args
}

func loadNotes(ctx context.Context, q querier, ticketIDs []string) (map[string][]domain.Note, error) {
	result := make(map[string][]domain.Note, len(ticketIDs))
	for _, id := range ticketIDs {
		result[id] = []domain.Note{}
	}
	if len(ticketIDs) == 0 {
		return result, nil
	}

	rows, err := q.Query(ctx,
		`SELECT `+noteColumns+` FROM ticket_notes WHERE ticket_id = ANY($1::uuid[]) ORDER BY ticket_id, position ASC`,
		ticketIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			note     domain.Note
			ticketID string
			noteType *string
		)
		if err := rows.Scan(
			&note.ID,
			&ticketID,
			&note.Text,
			&note.AddedBy.ID,
			&note.AddedBy.Name,
			&note.AddedBy.Email,
			&note.AddedBy.Role,
			&note.AddedAt,
			&noteType,
		); err != nil {
			return nil, err
		}
		if noteType != nil {
			note.NoteType = domain.NoteType(*noteType)
		}
		result[ticketID] = append(result[ticketID], note)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.CustomerID,
		&ticket.CustomerName,
		&ticket.CustomerEmail,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	defer rows.Close()
	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
