package notify

import (
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

type alertView struct {
	Title      string
	Source     string
	Published  string
	URL        string
	Summary    string
	Suggestion string
	Confidence string
	Threshold  string
	Color      htmltemplate.CSS
	Emoji      string
}

var plainTemplate = texttemplate.Must(texttemplate.New("plain").Parse(strings.TrimSpace(`
🚨 HIGH-CONFIDENCE INVESTMENT ALERT 🚨

Confidence Score: {{.Confidence}}% (Threshold: {{.Threshold}}%)

Article: {{.Title}}
Source: {{.Source}}
Published: {{.Published}}
URL: {{.URL}}

SUMMARY:
{{.Summary}}

INVESTMENT SUGGESTION:
{{.Suggestion}}

---
This alert was generated by MarketPulse
Confidence threshold: {{.Threshold}}%
`)))

var htmlTemplate = htmltemplate.Must(htmltemplate.New("html").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>High-Confidence Investment Alert</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .header { background-color: {{.Color}}; color: white; padding: 20px; text-align: center; }
        .content { padding: 20px; }
        .confidence { font-size: 24px; font-weight: bold; color: {{.Color}}; }
        .article-title { font-size: 18px; font-weight: bold; margin: 15px 0; }
        .summary, .suggestion { background-color: #f5f5f5; padding: 15px; margin: 10px 0; border-left: 4px solid {{.Color}}; }
        .footer { background-color: #f0f0f0; padding: 15px; text-align: center; font-size: 12px; color: #666; }
        .url { word-break: break-all; color: #1976d2; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.Emoji}} HIGH-CONFIDENCE INVESTMENT ALERT {{.Emoji}}</h1>
        <div class="confidence">Confidence Score: {{.Confidence}}%</div>
        <p>Threshold: {{.Threshold}}%</p>
    </div>

    <div class="content">
        <div class="article-title">{{.Title}}</div>
        <p><strong>Source:</strong> {{.Source}}</p>
        <p><strong>Published:</strong> {{.Published}}</p>
        <p><strong>URL:</strong> <a href="{{.URL}}" class="url">{{.URL}}</a></p>

        <div class="summary">
            <h3>📋 SUMMARY</h3>
            <p>{{.Summary}}</p>
        </div>

        <div class="suggestion">
            <h3>💡 INVESTMENT SUGGESTION</h3>
            <p>{{.Suggestion}}</p>
        </div>
    </div>

    <div class="footer">
        <p>This alert was generated by MarketPulse</p>
        <p>Confidence threshold: {{.Threshold}}%</p>
    </div>
</body>
</html>
`))

type tier struct {
	min   float64
	color string
	emoji string
}

// tiers are ordered by descending lower bound on the confidence percentage.
var tiers = []tier{
	{min: 90, color: "#d32f2f", emoji: "🔥"},
	{min: 80, color: "#f57c00", emoji: "⚠️"},
	{min: 0, color: "#1976d2", emoji: "📈"},
}

func tierFor(percentage float64) tier {
	for _, t := range tiers {
		if percentage >= t.min {
			return t
		}
	}
	return tiers[len(tiers)-1]
}
