package sink

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	contractx "github.com/avanse/counselor/agent/contract"
)

// SheetsConfig selects the remote spreadsheet and the credential sources
// tried at construction: a local service-account file first, then a
// JSON bundle from the environment.
type SheetsConfig struct {
	SheetID            string `envconfig:"SHEET_ID" split_words:"true"`
	SheetName          string `envconfig:"SHEET_NAME" split_words:"true" default:"Sheet1"`
	CredentialsFile    string `envconfig:"CREDENTIALS_FILE" split_words:"true" default:"credentials.json"`
	ServiceAccountJSON string `envconfig:"SERVICE_ACCOUNT_JSON" split_words:"true"`
}

// SheetsOption customizes the Sheets sink.
type SheetsOption func(*Sheets)

// WithService injects a pre-built Sheets API client, bypassing credential
// resolution. Used by tests.
func WithService(svc *sheets.Service) SheetsOption {
	return func(s *Sheets) {
		s.svc = svc
		s.remoteOK = svc != nil
	}
}

// Sheets upserts lead rows into a spreadsheet keyed by the Session_ID
// column, overwriting the row in place when the key exists. Any remote
// failure, including mid-upsert, falls back to the local CSV store.
type Sheets struct {
	svc       *sheets.Service
	sheetID   string
	sheetName string
	fallback  *CSV
	remoteOK  bool
}

// NewSheets connects to the remote store. On failure of both credential
// sources the sink stays usable: it marks the remote unavailable and routes
// every upsert to the fallback store.
func NewSheets(ctx context.Context, cfg SheetsConfig, fallback *CSV, opts ...SheetsOption) *Sheets {
	s := &Sheets{
		sheetID:   strings.TrimSpace(cfg.SheetID),
		sheetName: strings.TrimSpace(cfg.SheetName),
		fallback:  fallback,
	}
	if s.sheetName == "" {
		s.sheetName = "Sheet1"
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if s.svc == nil {
		s.svc = connect(ctx, cfg)
		s.remoteOK = s.svc != nil
	}
	if s.remoteOK && s.sheetID == "" {
		log.Warn().Msg("sheet id not configured, using local store only")
		s.remoteOK = false
	}

	if s.remoteOK {
		if err := s.ensureHeader(ctx); err != nil {
			log.Warn().Err(err).Msg("sheet header reconciliation failed")
		}
	}
	return s
}

func connect(ctx context.Context, cfg SheetsConfig) *sheets.Service {
	if path := strings.TrimSpace(cfg.CredentialsFile); path != "" {
		if _, err := os.Stat(path); err == nil {
			svc, err := sheets.NewService(ctx, option.WithCredentialsFile(path))
			if err == nil {
				log.Info().Str("source", "file").Msg("connected to google sheets")
				return svc
			}
			log.Warn().Err(err).Msg("sheets auth via credentials file failed")
		}
	}

	if bundle := strings.TrimSpace(cfg.ServiceAccountJSON); bundle != "" {
		// Secret managers often store the private key with escaped newlines.
		bundle = strings.ReplaceAll(bundle, `\n`, "\n")
		svc, err := sheets.NewService(ctx, option.WithCredentialsJSON([]byte(bundle)))
		if err == nil {
			log.Info().Str("source", "env").Msg("connected to google sheets")
			return svc
		}
		log.Warn().Err(err).Msg("sheets auth via service account bundle failed")
	}

	log.Warn().Msg("google sheets unavailable, falling back to local store")
	return nil
}

// ensureHeader forces the expected column header onto the first row when it
// is absent or does not match. The sink does not support schema migration
// beyond forcing the current schema.
func (s *Sheets) ensureHeader(ctx context.Context) error {
	resp, err := s.svc.Spreadsheets.Values.Get(s.sheetID, s.rangeRef("1:1")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header row: %w", err)
	}

	if len(resp.Values) > 0 && headerMatches(resp.Values[0]) {
		return nil
	}

	_, err = s.svc.Spreadsheets.Values.Update(s.sheetID, s.rangeRef("A1:O1"), &sheets.ValueRange{
		Values: [][]any{toCells(contractx.Header)},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header row: %w", err)
	}
	return nil
}

func (s *Sheets) Upsert(ctx context.Context, row contractx.Row) error {
	if !s.remoteOK {
		return s.fallback.Upsert(ctx, row)
	}

	if err := s.remoteUpsert(ctx, row); err != nil {
		log.Warn().Err(err).Str("session_id", row.SessionID).Msg("remote upsert failed, writing to local store")
		return s.fallback.Upsert(ctx, row)
	}
	return nil
}

func (s *Sheets) remoteUpsert(ctx context.Context, row contractx.Row) error {
	keys, err := s.svc.Spreadsheets.Values.Get(s.sheetID, s.rangeRef("A:A")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read key column: %w", err)
	}

	target := 0
	for i, cells := range keys.Values {
		if len(cells) > 0 && fmt.Sprint(cells[0]) == row.SessionID {
			target = i + 1 // sheet rows are 1-indexed
			break
		}
	}
	if target == 0 {
		// First unused row below the last populated one. Explicit index
		// arithmetic: a generic append can land outside the column range on
		// a sparsely populated sheet.
		target = len(keys.Values) + 1
	}

	rng := s.rangeRef(fmt.Sprintf("A%d:O%d", target, target))
	_, err = s.svc.Spreadsheets.Values.Update(s.sheetID, rng, &sheets.ValueRange{
		Values: [][]any{toCells(row.Values())},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write row %d: %w", target, err)
	}
	return nil
}

// RemoteAvailable reports whether the spreadsheet connection is live.
func (s *Sheets) RemoteAvailable() bool { return s.remoteOK }

func (s *Sheets) rangeRef(ref string) string {
	return s.sheetName + "!" + ref
}

func headerMatches(cells []any) bool {
	if len(cells) != len(contractx.Header) {
		return false
	}
	for i, c := range cells {
		if fmt.Sprint(c) != contractx.Header[i] {
			return false
		}
	}
	return true
}

func toCells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
