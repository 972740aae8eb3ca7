package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/libris/internal/correlation"
	"github.com/listenupapp/libris/internal/service"
)

func (s *Server) registerMemberRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "registerMember",
		Method:        http.MethodPost,
		Path:          "/api/v1/members",
		Summary:       "Register a member",
		Description:   "Creates the member row carrying a pre-generated profile reference, then the profile document",
		Tags:          []string{"Members"},
		DefaultStatus: http.StatusCreated,
	}, s.handleRegisterMember)
}

// RegisterMemberInput is the request for registering a member.
type RegisterMemberInput struct {
	Body service.RegisterMemberRequest
}

// MemberPairOutput returns the correlation keys of a new member.
type MemberPairOutput struct {
	Body *correlation.MemberPair
}

func (s *Server) handleRegisterMember(ctx context.Context, input *RegisterMemberInput) (*MemberPairOutput, error) {
	pair, err := s.services.Ingest.RegisterMember(ctx, input.Body)
	if err != nil {
		return nil, s.logFailure("registerMember", err)
	}
	return &MemberPairOutput{Body: pair}, nil
}
