package controllers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/rvstore-backend/internal/ledger"
)

type stubLedgerService struct {
	ledger.Service
	got ledger.DepositInput
}

func (s *stubLedgerService) RecordDeposit(ctx context.Context, input ledger.DepositInput) (*ledger.DepositResult, error) {
	s.got = input
	return &ledger.DepositResult{
		AccountBalance: 6650,
		Deposit:        ledger.Deposit{DepositID: 1, Amount: input.Amount, BalanceAfter: 6650},
	}, nil
}

func TestDeposit(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		status int
	}{
		{name: "positive", body: `{"amount":2371}`, status: http.StatusOK},
		{name: "zero", body: `{"amount":0}`, status: http.StatusBadRequest},
		{name: "negative", body: `{"amount":-5}`, status: http.StatusBadRequest},
		{name: "string", body: `{"amount":"5"}`, status: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubLedgerService{}
			req := httptest.NewRequest(http.MethodPost, "/api/v1/user/deposit", bytes.NewBufferString(tc.body))
			req = withRoute(req, 4, nil)
			rec := httptest.NewRecorder()

			Deposit(svc, nil).ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			if tc.status == http.StatusOK && (svc.got.UserID != 4 || svc.got.Amount != 2371) {
				t.Fatalf("unexpected deposit input %+v", svc.got)
			}
		})
	}
}
