package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"pasale-analytics/internal/demand"
	"pasale-analytics/internal/models"
	"pasale-analytics/internal/services"
)

const maxTableRows = 50

var combinationsTemplate = template.Must(template.New("combinations").Parse(`
<div id="combinations-content">
<table class="modern-table">
<thead><tr><th>Product</th><th>Shop</th><th>City</th><th>Months</th><th>Avg / month</th><th>Total</th></tr></thead>
<tbody>
{{range .}}<tr data-on-click="@get('/sse/prediction?product_id={{.ProductID}}&shop_id={{.ShopID}}')">
<td>{{.ProductName}} <small>{{.ProductID}}</small></td>
<td>{{.ShopID}}</td>
<td><span class="category-badge">{{.ShopCity}}</span></td>
<td>{{.DataPoints}}</td>
<td>{{printf "%.1f" .AvgMonthlyQty}}</td>
<td><strong>{{.TotalQty}}</strong></td>
</tr>{{end}}
</tbody>
</table>
</div>`))

var overviewTemplate = template.Must(template.New("overview").Parse(`
<div id="overview-content" class="stats-grid">
<div class="stat"><span>Transactions</span><strong>{{.Records}}</strong></div>
<div class="stat"><span>Products</span><strong>{{.Products}}</strong></div>
<div class="stat"><span>Shops</span><strong>{{.Shops}}</strong></div>
<div class="stat"><span>Customers</span><strong>{{.Customers}}</strong></div>
<div class="stat"><span>Model</span><strong>{{if .Trained}}trained{{else}}not trained{{end}}</strong></div>
<div class="stat"><span>Plan</span><strong>{{.Plan}}</strong></div>
</div>`))

var predictionTemplate = template.Must(template.New("prediction").Parse(`
<div id="prediction-content" class="prediction-card confidence-{{.Confidence}}">
<h3>{{.ProductID}} @ {{.ShopID}}</h3>
<p class="predicted">{{printf "%.1f" .PredictedQuantity}} units next month</p>
<p>Last actual: {{.LastActual}} ({{.LastDate}}) &middot; {{.HistoricalPoints}} months of history</p>
<p>Confidence: <strong>{{.Confidence}}</strong></p>
{{if .Note}}<p class="note">{{.Note}}</p>{{end}}
</div>`))

var messageTemplate = template.Must(template.New("message").Parse(`<div id="{{.ID}}" class="panel-message">{{.Text}}</div>`))

type SSEHandlers struct {
	pipeline *services.Pipeline
	logger   *slog.Logger
}

func NewSSEHandlers(pipeline *services.Pipeline, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		pipeline: pipeline,
		logger:   logger,
	}
}

type overviewData struct {
	Records   int
	Products  int
	Shops     int
	Customers int
	Trained   bool
	Plan      string
}

func (h *SSEHandlers) overview() overviewData {
	d := overviewData{
		Trained: h.pipeline.Trained(),
		Plan:    string(h.pipeline.SubscriptionInfo().CurrentPlan),
	}
	if ds := h.pipeline.Dataset(); ds != nil {
		d.Records = ds.RecordCount()
		d.Products = len(ds.Products())
		d.Shops = len(ds.Shops())
		d.Customers = len(ds.Profiles())
	}
	return d
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf strings.Builder
	err := tmpl.Execute(&buf, data)
	return buf.String(), err
}

func renderMessage(id, text string) string {
	html, err := render(messageTemplate, map[string]string{"ID": id, "Text": text})
	if err != nil {
		return `<div id="` + id + `"></div>`
	}
	return html
}

func (h *SSEHandlers) renderCombinations(combos []models.Combination) (string, error) {
	if len(combos) > maxTableRows {
		combos = combos[:maxTableRows]
	}
	return render(combinationsTemplate, combos)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleOverview(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	html, err := render(overviewTemplate, h.overview())
	if err != nil {
		h.logger.Error("render overview", "error", err)
		return
	}
	sse.PatchElements(html)
	flush(w)
}

func (h *SSEHandlers) HandleCombinations(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	combos, err := h.pipeline.AvailableCombinations()
	if err != nil {
		sse.PatchElements(renderMessage("combinations-content", toAppError(err).Message))
		flush(w)
		return
	}
	html, err := h.renderCombinations(combos)
	if err != nil {
		h.logger.Error("render combinations", "error", err)
		return
	}
	sse.PatchElements(html)
	flush(w)
}

func (h *SSEHandlers) HandlePrediction(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	productID := r.URL.Query().Get("product_id")
	shopID := r.URL.Query().Get("shop_id")
	if productID == "" || shopID == "" {
		sse.PatchElements(renderMessage("prediction-content", "Select a product and shop"))
		flush(w)
		return
	}

	pred, err := h.pipeline.PredictForProductShop(productID, shopID)
	if err != nil {
		sse.PatchElements(renderMessage("prediction-content", toAppError(err).Message))
		flush(w)
		return
	}
	html, err := render(predictionTemplate, pred)
	if err != nil {
		h.logger.Error("render prediction", "error", err)
		return
	}
	sse.PatchElements(html)

	history, _ := h.pipeline.ProductShopHistory(productID, shopID)
	h.patchSignals(sse, map[string]any{"predictionHistory": history})
	flush(w)
}

// HandleRecommendations streams one audience's recommendations as signals.
func (h *SSEHandlers) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	userType := services.UserType(r.PathValue("userType"))
	target := "recommendations-content"

	recs, err := h.pipeline.Recommendations(userType)
	if err != nil {
		sse.PatchElements(renderMessage(target, toAppError(err).Message))
		flush(w)
		return
	}
	h.patchSignals(sse, map[string]any{signalName(userType): recs})
	sse.PatchElements(renderMessage(target, "Loaded "+strings.ReplaceAll(string(userType), "_", " ")+" recommendations"))
	flush(w)
}

func signalName(userType services.UserType) string {
	parts := strings.Split(string(userType), "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "") + "Recs"
}

func (h *SSEHandlers) patchSignals(sse *datastar.ServerSentEventGenerator, signals map[string]any) {
	jsonData, err := json.Marshal(signals)
	if err != nil {
		h.logger.Error("marshal signals", "error", err)
		return
	}
	sse.PatchSignals(jsonData)
}

func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	html, err := render(overviewTemplate, h.overview())
	if err != nil {
		h.logger.Error("render overview", "error", err)
		return
	}
	sse.PatchElements(html)

	if combos, err := h.pipeline.AvailableCombinations(); err == nil {
		if html, err := h.renderCombinations(combos); err == nil {
			sse.PatchElements(html)
		}
	}

	signals := map[string]any{
		"subscription": h.pipeline.SubscriptionInfo(),
	}
	if h.pipeline.Trained() {
		signals["modelMetrics"] = h.pipeline.ModelMetrics(r.Context())
	}
	if ready, reason := h.pipeline.IsReadyForTraining(); !ready {
		signals["trainingStatus"] = reason
	}
	h.patchSignals(sse, signals)
	flush(w)
}

// scenarioSignals is the datastar signal payload posted by the what-if form.
type scenarioSignals struct {
	ProductID      string  `json:"productId"`
	ShopID         string  `json:"shopId"`
	PriceChange    float64 `json:"priceChange"`
	MarketingBoost float64 `json:"marketingBoost"`
	Season         string  `json:"season"`
}

func (h *SSEHandlers) HandleScenario(w http.ResponseWriter, r *http.Request) {
	var in scenarioSignals
	if err := datastar.ReadSignals(r, &in); err != nil {
		http.Error(w, "invalid signals", http.StatusBadRequest)
		return
	}
	sse := datastar.NewSSE(w, r)

	season, err := demand.ParseSeason(in.Season)
	if err == nil {
		var res demand.ScenarioResult
		res, err = h.pipeline.RunScenario(in.ProductID, in.ShopID, demand.Scenario{
			PriceChange:    in.PriceChange,
			MarketingBoost: in.MarketingBoost,
			Season:         season,
		})
		if err == nil {
			h.patchSignals(sse, map[string]any{"scenarioResult": res})
			sse.PatchElements(renderMessage("scenario-content", "Scenario updated"))
			flush(w)
			return
		}
	}
	sse.PatchElements(renderMessage("scenario-content", toAppError(err).Message))
	flush(w)
}
