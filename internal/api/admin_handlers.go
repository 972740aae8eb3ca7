package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/listenupapp/libris/internal/errors"
	"github.com/listenupapp/libris/internal/reconcile"
)

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "consistencyScan",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/consistency",
		Summary:     "Compare correlation keys across stores",
		Description: "Read-only. Lists relational rows without documents and documents without rows.",
		Tags:        []string{"Admin"},
	}, s.handleConsistencyScan)

	huma.Register(s.api, huma.Operation{
		OperationID: "consistencyRepair",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/consistency/repair",
		Summary:     "Repair cross-store drift",
		Description: "Runs a scan and applies corrective writes. Run the scan again to confirm the effect.",
		Tags:        []string{"Admin"},
	}, s.handleConsistencyRepair)
}

// ConsistencyReportOutput is a scan report.
type ConsistencyReportOutput struct {
	Body *reconcile.Report
}

// RepairOutput only says whether the pass completed.
type RepairOutput struct {
	Body struct {
		Repaired bool `json:"repaired"`
	}
}

func (s *Server) handleConsistencyScan(ctx context.Context, _ *struct{}) (*ConsistencyReportOutput, error) {
	report, err := s.services.Scanner.Scan(ctx)
	if err != nil {
		return nil, s.logFailure("consistencyScan", domainerrors.Wrap(err, domainerrors.CodeUnavailable, "consistency scan failed"))
	}
	return &ConsistencyReportOutput{Body: report}, nil
}

func (s *Server) handleConsistencyRepair(ctx context.Context, _ *struct{}) (*RepairOutput, error) {
	result, err := s.services.Repairer.ScanAndRepair(ctx)
	if err != nil {
		if result != nil {
			s.logger.Warn("repair pass incomplete", "failed", result.Failed, "applied", result.Total())
		}
		return nil, s.logFailure("consistencyRepair", domainerrors.Wrap(err, domainerrors.CodeInternal, "repair failed"))
	}
	out := &RepairOutput{}
	out.Body.Repaired = true
	return out, nil
}
