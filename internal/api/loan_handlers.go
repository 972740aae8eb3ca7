package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/libris/internal/domain"
	"github.com/listenupapp/libris/internal/service"
)

func (s *Server) registerLoanRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "borrowBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/loans",
		Summary:       "Borrow a book",
		Tags:          []string{"Loans"},
		DefaultStatus: http.StatusCreated,
	}, s.handleBorrow)

	huma.Register(s.api, huma.Operation{
		OperationID: "returnBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/loans/{id}/return",
		Summary:     "Return a borrowed book",
		Description: "Closes the loan and reports any late fine in cents",
		Tags:        []string{"Loans"},
	}, s.handleReturn)
}

// BorrowInput is the request for opening a loan.
type BorrowInput struct {
	Body service.BorrowRequest
}

// LoanOutput returns a loan.
type LoanOutput struct {
	Body *domain.Loan
}

// ReturnInput addresses the loan to close.
type ReturnInput struct {
	ID int64 `path:"id" minimum:"1" doc:"Loan id"`
}

// ReturnOutput returns the closed loan and its fine.
type ReturnOutput struct {
	Body *service.ReturnReceipt
}

func (s *Server) handleBorrow(ctx context.Context, input *BorrowInput) (*LoanOutput, error) {
	loan, err := s.services.Circulation.Borrow(ctx, input.Body)
	if err != nil {
		return nil, s.logFailure("borrowBook", err)
	}
	return &LoanOutput{Body: loan}, nil
}

func (s *Server) handleReturn(ctx context.Context, input *ReturnInput) (*ReturnOutput, error) {
	receipt, err := s.services.Circulation.Return(ctx, input.ID)
	if err != nil {
		return nil, s.logFailure("returnBook", err)
	}
	return &ReturnOutput{Body: receipt}, nil
}
