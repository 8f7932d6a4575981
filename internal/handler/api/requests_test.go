package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	models "Tradia/internal/domain/models"
	xhttp "Tradia/pkg/http"

	"github.com/labstack/echo/v4"
)

func bindByDay(t *testing.T, target string) *models.SignalsByDayRequest {
	t.Helper()
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
	req := &models.SignalsByDayRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		t.Fatalf("bind failed: %v", verr)
	}
	return req
}

func TestByDayExplicitOnlyTopFalseSurvivesBinding(t *testing.T) {
	req := bindByDay(t, "/?date=2026-08-01&only_top=false")
	if req.OnlyTop == nil {
		t.Fatalf("only_top=false was dropped")
	}
	if *req.OnlyTop {
		t.Fatalf("explicit only_top=false came back true")
	}
}

func TestByDayOnlyTopUnsetStaysNil(t *testing.T) {
	req := bindByDay(t, "/?date=2026-08-01")
	if req.OnlyTop != nil {
		t.Fatalf("unset only_top should bind to nil, got %v", *req.OnlyTop)
	}
	if req.Limit != 600 {
		t.Fatalf("limit default not applied, got %d", req.Limit)
	}
}
