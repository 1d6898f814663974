package orders

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ Store = (*Postgres)(nil)

// Postgres reads submitted orders straight from the tables the submission
// system writes.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) SubmittedOrders(ctx context.Context, sessionCode string) ([]Order, error) {
	query := `
		select o.order_number, i.item_id, i.name, i.unit_price, i.quantity, i.notes
		from orders o
		join order_items i on i.order_id = o.id
		where o.group_session_code = $1 and o.status <> 'CANCELLED'
		order by o.id asc, i.id asc
	`

	rows, err := p.db.Query(ctx, query, strings.ToUpper(strings.TrimSpace(sessionCode)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Order, 0)
	index := make(map[string]int)
	for rows.Next() {
		var (
			orderNumber string
			line        Line
			price       pgtype.Numeric
			notes       pgtype.Text
		)
		if err := rows.Scan(&orderNumber, &line.ID, &line.Name, &price, &line.Quantity, &notes); err != nil {
			return nil, err
		}
		if price.Valid {
			if f, err := price.Float64Value(); err == nil {
				line.Price = f.Float64
			}
		}
		if notes.Valid {
			line.Notes = notes.String
		}

		i, exists := index[orderNumber]
		if !exists {
			i = len(out)
			index[orderNumber] = i
			out = append(out, Order{OrderID: orderNumber, Items: make([]Line, 0, 4)})
		}
		out[i].Items = append(out[i].Items, line)
	}
	return out, rows.Err()
}
