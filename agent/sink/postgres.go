package sink

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/avanse/counselor/agent/contract"
)

type PostgresConfig struct {
	DSN string `envconfig:"DSN" split_words:"true"`
}

// leadRow is the relational projection of the 15-column lead schema,
// one row per session.
type leadRow struct {
	bun.BaseModel `bun:"table:lead_rows"`

	SessionID        string `bun:"session_id,pk"`
	Timestamp        string `bun:"ts"`
	Name             string `bun:"name"`
	Mobile           string `bun:"mobile"`
	Email            string `bun:"email"`
	Country          string `bun:"country"`
	TargetDegree     string `bun:"target_degree"`
	IntendedMajor    string `bun:"intended_major"`
	College          string `bun:"college"`
	Budget           string `bun:"budget"`
	Sentiment        string `bun:"sentiment"`
	Propensity       string `bun:"propensity"`
	TimeSpent        string `bun:"time_spent"`
	UserInputsOnly   string `bun:"user_inputs_only"`
	FullConversation string `bun:"full_conversation_history"`
}

// Postgres is an alternative primary sink for deployments that prefer a
// relational store over a spreadsheet. The upsert is a single conditional
// write, so it does not inherit the sheet sink's read-then-write race.
type Postgres struct {
	db *bun.DB
}

func NewPostgres(cfg PostgresConfig) *Postgres {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	return &Postgres{db: bun.NewDB(sqldb, pgdialect.New())}
}

// Init creates the lead_rows table when missing. Call once at startup.
func (p *Postgres) Init(ctx context.Context) error {
	_, err := p.db.NewCreateTable().Model((*leadRow)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("create lead_rows table: %w", err)
	}
	return nil
}

func (p *Postgres) Upsert(ctx context.Context, row contractx.Row) error {
	model := &leadRow{
		SessionID:        row.SessionID,
		Timestamp:        row.Timestamp,
		Name:             row.Name,
		Mobile:           row.Mobile,
		Email:            row.Email,
		Country:          row.Country,
		TargetDegree:     row.TargetDegree,
		IntendedMajor:    row.IntendedMajor,
		College:          row.College,
		Budget:           row.Budget,
		Sentiment:        row.Sentiment,
		Propensity:       row.Propensity,
		TimeSpent:        row.TimeSpent,
		UserInputsOnly:   row.UserInputsOnly,
		FullConversation: row.FullConversation,
	}

	_, err := p.db.NewInsert().
		Model(model).
		On("CONFLICT (session_id) DO UPDATE").
		Set("ts = EXCLUDED.ts").
		Set("name = EXCLUDED.name").
		Set("mobile = EXCLUDED.mobile").
		Set("email = EXCLUDED.email").
		Set("country = EXCLUDED.country").
		Set("target_degree = EXCLUDED.target_degree").
		Set("intended_major = EXCLUDED.intended_major").
		Set("college = EXCLUDED.college").
		Set("budget = EXCLUDED.budget").
		Set("sentiment = EXCLUDED.sentiment").
		Set("propensity = EXCLUDED.propensity").
		Set("time_spent = EXCLUDED.time_spent").
		Set("user_inputs_only = EXCLUDED.user_inputs_only").
		Set("full_conversation_history = EXCLUDED.full_conversation_history").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert lead row %s: %w", row.SessionID, err)
	}
	return nil
}

func (p *Postgres) Close() error { return p.db.Close() }
