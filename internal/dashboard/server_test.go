package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/makey/solar-forecast/internal/config"
	"github.com/makey/solar-forecast/internal/lead"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var fixedNow = time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T, mutate func(*Options)) http.Handler {
	t.Helper()
	conf := config.Default()
	conf.Team = []config.TeamMember{
		{Name: "Francisco Vargas", Role: "Gestión"},
		{Name: "Claudia Mella", Role: "Ingeniería"},
	}
	opts := Options{
		Logger:  zap.NewNop(),
		Config:  conf,
		Version: "1.2.3",
		Leads:   lead.NewMemoryStore(),
		Now:     func() time.Time { return fixedNow },
	}
	if mutate != nil {
		mutate(&opts)
	}
	return NewHandler(opts)
}

func doRequest(h http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.RemoteAddr = "192.0.2.10:40000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

type testProjectionResponse struct {
	Split struct {
		SubsidyAmount   float64 `json:"subsidyAmount"`
		OwnerInvestment float64 `json:"ownerInvestment"`
	} `json:"split"`
	FirstYearSavings float64  `json:"firstYearSavings"`
	PaybackYears     *float64 `json:"paybackYears"`
	PaybackDefined   bool     `json:"paybackDefined"`
	BreakEvenYear    *int     `json:"breakEvenYear"`
	FinalNetBenefit  float64  `json:"finalNetBenefit"`
	Metrics          []struct {
		Key   string `json:"key"`
		Label string `json:"label"`
		Value string `json:"value"`
	} `json:"metrics"`
	Rows []struct {
		Year                  int     `json:"year"`
		NetAccumulatedBenefit float64 `json:"netAccumulatedBenefit"`
	} `json:"rows"`
	Series struct {
		Years []int `json:"years"`
	} `json:"series"`
	Factors []struct {
		Title string `json:"title"`
	} `json:"factors"`
	CSV      string   `json:"csv"`
	Warnings []string `json:"warnings"`
	Duration string   `json:"duration"`
	Cached   bool     `json:"cached"`
}

func decodeProjection(t *testing.T, rr *httptest.ResponseRecorder) testProjectionResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp testProjectionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestProjectionQueryReferenceScenario(t *testing.T) {
	h := newTestHandler(t, nil)

	rr := doRequest(h, http.MethodGet, "/api/projection?monthlyCost=500000&inflationPercent=5&systemCost=15000000", "")
	resp := decodeProjection(t, rr)

	assert.Equal(t, 9000000.0, resp.Split.SubsidyAmount)
	assert.Equal(t, 6000000.0, resp.Split.OwnerInvestment)
	assert.InDelta(t, 5400000.0, resp.FirstYearSavings, 1e-6)
	require.NotNil(t, resp.PaybackYears)
	assert.InDelta(t, 1.111, *resp.PaybackYears, 0.001)
	assert.True(t, resp.PaybackDefined)
	require.NotNil(t, resp.BreakEvenYear)
	assert.Equal(t, 1, *resp.BreakEvenYear)

	require.Len(t, resp.Rows, 11)
	assert.InDelta(t, -600000.0, resp.Rows[0].NetAccumulatedBenefit, 1e-6)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, resp.Series.Years)

	require.Len(t, resp.Metrics, 4)
	assert.Equal(t, "Subsidio Corfo (60%)", resp.Metrics[0].Label)
	assert.Equal(t, "$9,000,000", resp.Metrics[0].Value)
	assert.Equal(t, "$6,000,000", resp.Metrics[1].Value)
	assert.Equal(t, "$5,400,000", resp.Metrics[2].Value)
	assert.Equal(t, "1.1 años", resp.Metrics[3].Value)

	assert.Len(t, resp.Factors, 2)
	assert.Len(t, strings.Split(strings.TrimSpace(resp.CSV), "\n"), 12)
	assert.Empty(t, resp.Warnings)
	assert.False(t, resp.Cached)
	assert.NotEmpty(t, resp.Duration)
}

func TestProjectionQueryUsesConfiguredDefaults(t *testing.T) {
	h := newTestHandler(t, nil)

	resp := decodeProjection(t, doRequest(h, http.MethodGet, "/api/projection", ""))

	assert.Equal(t, 6000000.0, resp.Split.OwnerInvestment)
	assert.InDelta(t, 5400000.0, resp.FirstYearSavings, 1e-6)
}

func TestProjectionIsCached(t *testing.T) {
	h := newTestHandler(t, nil)
	target := "/api/projection?monthlyCost=800000&inflationPercent=7"

	first := decodeProjection(t, doRequest(h, http.MethodGet, target, ""))
	second := decodeProjection(t, doRequest(h, http.MethodGet, target, ""))

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.FinalNetBenefit, second.FinalNetBenefit)
	assert.Equal(t, first.Metrics, second.Metrics)
}

func TestProjectionZeroBaseline(t *testing.T) {
	h := newTestHandler(t, nil)

	rr := doRequest(h, http.MethodGet, "/api/projection?monthlyCost=0", "")
	resp := decodeProjection(t, rr)

	assert.Nil(t, resp.PaybackYears)
	assert.False(t, resp.PaybackDefined)
	assert.Nil(t, resp.BreakEvenYear)
	assert.Equal(t, "sin retorno", resp.Metrics[3].Value)
	assert.NotEmpty(t, resp.Warnings)
	assert.Contains(t, rr.Body.String(), `"paybackYears":null`)
}

func TestProjectionOutOfRangeInputsWarn(t *testing.T) {
	h := newTestHandler(t, nil)

	resp := decodeProjection(t, doRequest(h, http.MethodGet, "/api/projection?monthlyCost=5000000&inflationPercent=30", ""))

	assert.Len(t, resp.Warnings, 2)
}

func TestProjectionJSON(t *testing.T) {
	h := newTestHandler(t, nil)

	rr := doRequest(h, http.MethodPost, "/api/projection", `{"monthlyCost": 500000, "inflationPercent": 5, "systemCost": 20000000}`)
	resp := decodeProjection(t, rr)

	assert.Equal(t, 12000000.0, resp.Split.SubsidyAmount)
	assert.Equal(t, 8000000.0, resp.Split.OwnerInvestment)
	require.NotNil(t, resp.PaybackYears)
	assert.InDelta(t, 8000000.0/5400000.0, *resp.PaybackYears, 1e-9)
}

func TestProjectionInvalidInputs(t *testing.T) {
	h := newTestHandler(t, nil)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{"non-numeric query", http.MethodGet, "/api/projection?monthlyCost=abc", "", http.StatusBadRequest},
		{"negative query", http.MethodGet, "/api/projection?systemCost=-5", "", http.StatusBadRequest},
		{"NaN query", http.MethodGet, "/api/projection?inflationPercent=NaN", "", http.StatusBadRequest},
		{"overflowing inputs", http.MethodGet, "/api/projection?monthlyCost=1e307", "", http.StatusBadRequest},
		{"malformed JSON", http.MethodPost, "/api/projection", `{"monthlyCost":`, http.StatusBadRequest},
		{"negative JSON", http.MethodPost, "/api/projection", `{"monthlyCost": -1}`, http.StatusBadRequest},
		{"invalid CSV query", http.MethodGet, "/api/projection.csv?monthlyCost=x", "", http.StatusBadRequest},
		{"invalid PDF query", http.MethodGet, "/api/report.pdf?inflationPercent=-1", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(h, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, rr.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestProjectionMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, nil)

	rr := doRequest(h, http.MethodDelete, "/api/projection", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestProjectionBodyTooLarge(t *testing.T) {
	h := newTestHandler(t, func(o *Options) { o.MaxBodySize = 16 })

	rr := doRequest(h, http.MethodPost, "/api/projection", `{"monthlyCost": 500000, "inflationPercent": 5, "systemCost": 15000000}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestProjectionCSV(t *testing.T) {
	h := newTestHandler(t, nil)

	rr := doRequest(h, http.MethodGet, "/api/projection.csv?monthlyCost=500000", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "proyeccion.csv")

	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	assert.Len(t, lines, 12)
	assert.True(t, strings.HasPrefix(lines[1], "0,"))
}

func TestReportPDF(t *testing.T) {
	h := newTestHandler(t, nil)

	rr := doRequest(h, http.MethodGet, "/api/report.pdf", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")))
}

func TestInputsExport(t *testing.T) {
	h := newTestHandler(t, nil)

	payload := `{"output": {"format": "csv"}, "inputs": {"monthlyCost": 700000, "inflationPercent": 6, "systemCost": 18000000}, "program": {"horizonYears": 12}}`
	rr := doRequest(h, http.MethodPost, "/api/inputs/export", payload)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	exported := body["configYaml"]

	assert.True(t, strings.HasPrefix(exported, "inputs:"), exported)
	assert.Less(t, strings.Index(exported, "program:"), strings.Index(exported, "output:"))

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(exported), &decoded))
	assert.Contains(t, decoded, "inputs")

	conf, err := config.LoadConfigurationFromReader(strings.NewReader(exported))
	require.NoError(t, err)
	assert.Equal(t, 700000.0, conf.Inputs.MonthlyCostNow)
	assert.Equal(t, 12, conf.Program.HorizonYears)
	assert.Equal(t, "csv", conf.Output.Format)
}

func TestInputsExportRejectsInvalidConfiguration(t *testing.T) {
	h := newTestHandler(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"negative system cost", `{"inputs": {"systemCost": -1}}`},
		{"unknown output format", `{"output": {"format": "xml"}}`},
		{"malformed JSON", `{"inputs": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(h, http.MethodPost, "/api/inputs/export", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestCreateAndListEvaluations(t *testing.T) {
	store := lead.NewMemoryStore()
	h := newTestHandler(t, func(o *Options) {
		o.Leads = store
		o.ExposeEvaluations = true
	})

	rr := doRequest(h, http.MethodPost, "/api/evaluations",
		`{"contact": {"name": "Pyme Los Andes", "phone": "+56 9 1111 1111"}, "inputs": {"monthlyCost": 500000, "inflationPercent": 5, "systemCost": 15000000}}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created evaluationResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "¡Excelente! Francisco Vargas y Claudia Mella han sido notificados. Prepare su Carpeta Tributaria para la revisión.", created.Message)

	rr = doRequest(h, http.MethodGet, "/api/evaluations", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var listed struct {
		Evaluations []lead.EvaluationRequest `json:"evaluations"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listed))
	require.Len(t, listed.Evaluations, 1)

	got := listed.Evaluations[0]
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Pyme Los Andes", got.Contact.Name)
	assert.True(t, fixedNow.Equal(got.CreatedAt))
	assert.Equal(t, 6000000.0, got.OwnerInvestment)
	assert.InDelta(t, 5400000.0, got.FirstYearSavings, 1e-6)
}

func TestListEvaluationsEmpty(t *testing.T) {
	h := newTestHandler(t, func(o *Options) { o.ExposeEvaluations = true })

	rr := doRequest(h, http.MethodGet, "/api/evaluations", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"evaluations": []}`, rr.Body.String())
}

func TestEvaluationsNotListedByDefault(t *testing.T) {
	store := lead.NewMemoryStore()
	h := newTestHandler(t, func(o *Options) { o.Leads = store })

	rr := doRequest(h, http.MethodPost, "/api/evaluations", `{"contact": {"name": "Ana", "phone": "+56 9 2222 3333"}}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	// Only the POST route is registered.
	rr = doRequest(h, http.MethodGet, "/api/evaluations", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.NotContains(t, rr.Body.String(), "+56 9 2222 3333")

	stored, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestCreateEvaluationValidation(t *testing.T) {
	h := newTestHandler(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"missing contact name", `{"contact": {"phone": "123"}}`},
		{"invalid inputs", `{"contact": {"name": "Ana"}, "inputs": {"monthlyCost": -10}}`},
		{"malformed JSON", `{"contact": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(h, http.MethodPost, "/api/evaluations", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestCreateEvaluationRateLimited(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	t.Cleanup(limiter.Stop)
	h := newTestHandler(t, func(o *Options) { o.Limiter = limiter })

	body := `{"contact": {"name": "Ana", "phone": "+56 9 2222 3333"}}`
	assert.Equal(t, http.StatusCreated, doRequest(h, http.MethodPost, "/api/evaluations", body).Code)
	assert.Equal(t, http.StatusCreated, doRequest(h, http.MethodPost, "/api/evaluations", body).Code)

	rr := doRequest(h, http.MethodPost, "/api/evaluations", body)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	// Projections are not rate limited.
	assert.Equal(t, http.StatusOK, doRequest(h, http.MethodGet, "/api/projection", "").Code)
}

func TestCreateEvaluationIgnoresForwardingHeaders(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	t.Cleanup(limiter.Stop)
	h := newTestHandler(t, func(o *Options) { o.Limiter = limiter })

	body := `{"contact": {"name": "Ana", "phone": "+56 9 2222 3333"}}`
	codes := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/evaluations", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("1.2.3.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("1.2.4.%d", i))
		req.RemoteAddr = "10.0.0.1:1234"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}

	assert.Equal(t, []int{
		http.StatusCreated,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
	}, codes)
}

func TestSettings(t *testing.T) {
	h := newTestHandler(t, nil)

	rr := doRequest(h, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body settingsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 100000.0, body.Dashboard.MonthlyCostMin)
	assert.Equal(t, 2000000.0, body.Dashboard.MonthlyCostMax)
	assert.Equal(t, 15.0, body.Dashboard.InflationMax)
	assert.Equal(t, 500000.0, body.Defaults.MonthlyCostNow)
	assert.Equal(t, 0.6, body.Program.SubsidyRate)
	assert.Len(t, body.Team, 2)
	assert.Equal(t, "1.2.3", body.Version)
}

func TestVersionAndHealth(t *testing.T) {
	h := newTestHandler(t, nil)

	rr := doRequest(h, http.MethodGet, "/api/version", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"version": "1.2.3"}`, rr.Body.String())

	rr = doRequest(h, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rr.Body.String())
}

func TestStaticIndex(t *testing.T) {
	h := newTestHandler(t, nil)

	rr := doRequest(h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Simulador Predictivo")

	rr = doRequest(h, http.MethodGet, "/app.js", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestNotificationMessage(t *testing.T) {
	tests := []struct {
		name string
		team []config.TeamMember
		want string
	}{
		{
			name: "no team",
			want: "¡Excelente! Nuestro equipo ha sido notificado. Prepare su Carpeta Tributaria para la revisión.",
		},
		{
			name: "single member",
			team: []config.TeamMember{{Name: "Ana"}},
			want: "¡Excelente! Ana ha sido notificado. Prepare su Carpeta Tributaria para la revisión.",
		},
		{
			name: "three members with a blank name",
			team: []config.TeamMember{{Name: "Ana"}, {Name: " "}, {Name: "Luis"}, {Name: "Marta"}},
			want: "¡Excelente! Ana, Luis y Marta han sido notificados. Prepare su Carpeta Tributaria para la revisión.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, notificationMessage(tt.team))
		})
	}
}
