package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

const exportPageSize = 500

// ExportRecord is one JSONL line of a ledger export.
type ExportRecord struct {
	Container   domain.ContainerRef `json:"container"`
	UserID      int64               `json:"user_id"`
	Transaction domain.Transaction  `json:"transaction"`
}

// ExportSummary describes a completed export run.
type ExportSummary struct {
	BatchID      string   `json:"batch_id"`
	Containers   int      `json:"containers"`
	Transactions int      `json:"transactions"`
	Paths        []string `json:"paths"`
}

// ExportService writes every container's ledger as JSONL to blob storage,
// one object per non-empty container.
type ExportService struct {
	portfolios domain.PortfolioStore
	accounts   domain.SimulationStore
	txs        domain.TransactionStore
	writer     domain.BlobWriter
	prefix     string
	effects    sideEffects
	logger     *slog.Logger
	now        func() time.Time
}

// NewExportService creates an ExportService writing under prefix.
func NewExportService(
	portfolios domain.PortfolioStore,
	accounts domain.SimulationStore,
	txs domain.TransactionStore,
	writer domain.BlobWriter,
	prefix string,
	audit domain.AuditStore,
	logger *slog.Logger,
) *ExportService {
	if prefix == "" {
		prefix = "exports"
	}
	return &ExportService{
		portfolios: portfolios,
		accounts:   accounts,
		txs:        txs,
		writer:     writer,
		prefix:     prefix,
		effects:    sideEffects{audit: audit, logger: logger},
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type exportTarget struct {
	ref    domain.ContainerRef
	userID int64
}

// Run exports every portfolio and simulation account.
func (s *ExportService) Run(ctx context.Context) (ExportSummary, error) {
	sum := ExportSummary{BatchID: uuid.NewString()}
	dir := path.Join(s.prefix, s.now().Format("2006-01-02"), sum.BatchID)

	targets, err := s.targets(ctx)
	if err != nil {
		return ExportSummary{}, fmt.Errorf("export_service: list containers: %w", err)
	}

	for _, tg := range targets {
		txs, err := s.txs.Query(ctx, tg.ref, "")
		if err != nil {
			return sum, fmt.Errorf("export_service: query %s: %w", tg.ref, err)
		}
		if len(txs) == 0 {
			continue
		}

		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		for _, t := range txs {
			if err := enc.Encode(ExportRecord{Container: tg.ref, UserID: tg.userID, Transaction: t}); err != nil {
				return sum, fmt.Errorf("export_service: encode %s: %w", tg.ref, err)
			}
		}

		p := path.Join(dir, fmt.Sprintf("%s-%d.jsonl", tg.ref.Kind, tg.ref.ID))
		if err := s.writer.Put(ctx, p, &buf, "application/x-ndjson"); err != nil {
			return sum, fmt.Errorf("export_service: upload %s: %w", p, err)
		}

		sum.Containers++
		sum.Transactions += len(txs)
		sum.Paths = append(sum.Paths, p)
		s.logger.DebugContext(ctx, "export_service: exported container",
			slog.String("container", tg.ref.String()),
			slog.Int("transactions", len(txs)),
		)
	}

	s.effects.record(ctx, "export_completed", map[string]any{
		"batch_id":     sum.BatchID,
		"containers":   sum.Containers,
		"transactions": sum.Transactions,
	})
	s.logger.InfoContext(ctx, "export_service: export complete",
		slog.String("batch_id", sum.BatchID),
		slog.Int("containers", sum.Containers),
		slog.Int("transactions", sum.Transactions),
	)
	return sum, nil
}

func (s *ExportService) targets(ctx context.Context) ([]exportTarget, error) {
	var out []exportTarget
	for offset := 0; ; offset += exportPageSize {
		ps, err := s.portfolios.ListAll(ctx, domain.ListOpts{Limit: exportPageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		for _, p := range ps {
			out = append(out, exportTarget{ref: p.Ref(), userID: p.UserID})
		}
		if len(ps) < exportPageSize {
			break
		}
	}
	for offset := 0; ; offset += exportPageSize {
		as, err := s.accounts.ListAll(ctx, domain.ListOpts{Limit: exportPageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		for _, a := range as {
			out = append(out, exportTarget{ref: a.Ref(), userID: a.UserID})
		}
		if len(as) < exportPageSize {
			break
		}
	}
	return out, nil
}
