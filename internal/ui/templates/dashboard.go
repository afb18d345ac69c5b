// Package templates renders the dashboard shell. Panels start empty and are
// filled by the /sse endpoints once datastar boots.
package templates

import (
	"context"
	"html/template"
	"io"

	"github.com/a-h/templ"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.5/bundles/datastar.js"

type panel struct {
	ID    string
	Title string
}

type dashboardData struct {
	Title    string
	Subtitle string
	Script   string
	Panels   []panel
	Audience []string
}

var dashboardPage = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<script type="module" src="{{.Script}}"></script>
<style>
body{font-family:system-ui,sans-serif;margin:0;background:#f5f6f8;color:#1f2933}
header{padding:1.5rem 2rem;background:#1f3a5f;color:#fff}
main{display:grid;grid-template-columns:repeat(auto-fit,minmax(420px,1fr));gap:1rem;padding:1rem 2rem}
section{background:#fff;border-radius:8px;padding:1rem;box-shadow:0 1px 3px rgba(0,0,0,.1)}
.stats-grid{display:grid;grid-template-columns:repeat(3,1fr);gap:.5rem}
.stat span{display:block;font-size:.8rem;color:#616e7c}
.modern-table{width:100%;border-collapse:collapse;font-size:.9rem}
.modern-table td,.modern-table th{padding:.35rem;border-bottom:1px solid #e4e7eb;text-align:left}
.modern-table tbody tr{cursor:pointer}
.category-badge{background:#e3f8ff;padding:.1rem .4rem;border-radius:4px}
.confidence-high{border-left:4px solid #2f9e44}
.confidence-medium{border-left:4px solid #f08c00}
.confidence-low,.confidence-very_low{border-left:4px solid #c92a2a}
.prediction-card{padding-left:.75rem}
pre{max-height:320px;overflow:auto;background:#f5f7fa;padding:.5rem;font-size:.8rem}
</style>
</head>
<body data-signals="{productId:'',shopId:'',priceChange:0,marketingBoost:3,season:'normal'}" data-on-load="@get('/sse/refresh-all')">
<header>
<h1>{{.Title}}</h1>
<p>{{.Subtitle}}</p>
<button data-on-click="@get('/sse/refresh-all')">Refresh</button>
</header>
<main>
{{range .Panels}}<section>
<h2>{{.Title}}</h2>
<div id="{{.ID}}">Loading...</div>
</section>
{{end}}<section>
<h2>What-if Scenario</h2>
<form data-on-submit="@post('/sse/scenario')">
<label>Product <input data-bind-product-id placeholder="P1"></label>
<label>Shop <input data-bind-shop-id placeholder="S1"></label>
<label>Price change <input type="number" step="0.05" data-bind-price-change></label>
<label>Marketing (1-5) <input type="number" min="1" max="5" data-bind-marketing-boost></label>
<label>Season <select data-bind-season><option>normal</option><option>holiday</option><option>summer</option></select></label>
<button type="submit">Run</button>
</form>
<div id="scenario-content"></div>
<pre data-text="JSON.stringify($scenarioResult, null, 2)"></pre>
</section>
<section>
<h2>Recommendations</h2>
{{range .Audience}}<button data-on-click="@get('/sse/recommendations/{{.}}')">{{.}}</button>
{{end}}<div id="recommendations-content"></div>
<pre data-text="JSON.stringify({shopkeeper: $shopkeeperRecs, customer: $customerRecs, product_owner: $productOwnerRecs}, null, 2)"></pre>
</section>
<section>
<h2>Model</h2>
<pre data-text="JSON.stringify({status: $trainingStatus, metrics: $modelMetrics, subscription: $subscription}, null, 2)"></pre>
</section>
</main>
</body>
</html>
`))

func defaultDashboard() dashboardData {
	return dashboardData{
		Title:    "Pasale Retail Analytics",
		Subtitle: "Demand forecasts, customer segments and stock recommendations",
		Script:   datastarScript,
		Panels: []panel{
			{ID: "overview-content", Title: "Overview"},
			{ID: "combinations-content", Title: "Product / Shop Combinations"},
			{ID: "prediction-content", Title: "Next-Month Forecast"},
		},
		Audience: []string{"shopkeeper", "customer", "product_owner"},
	}
}

// Dashboard is the single page served at /.
func Dashboard() templ.Component {
	data := defaultDashboard()
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return dashboardPage.Execute(w, data)
	})
}
