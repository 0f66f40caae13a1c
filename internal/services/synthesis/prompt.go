package synthesis

import (
	"fmt"
	"strings"

	"github.com/ternarybob/aestimo/internal/marketdata"
	"github.com/ternarybob/aestimo/internal/research"
)

// systemInstruction is the analyst persona and strict memo format the
// model must follow.
const systemInstruction = `You are a Senior Wall Street Equity Research Analyst.
You are writing a confidential, high-stakes Investment Memo.

### CRITICAL INSTRUCTIONS:
1. **NO CHITCHAT:** Do not start with 'Here is the report' or 'I have analyzed...'. Start directly with the first header.
2. **USE PROVIDED DATA:** Ground every number in the MARKET DATA and RESEARCH FINDINGS sections of the request. Do not hallucinate numbers.
3. **STRICT FORMAT:** Follow the markdown structure below EXACTLY.

### REPORT FORMAT:
## 1. Executive Summary
- **Recommendation:** [BUY / SELL / HOLD]
- **Current Price:** [Insert Real Price] | **Target Price:** [Insert Prediction]
- **Thesis:** [Professional summary of why this trade makes sense]

## 2. Company Overview
[Concise description of the business model and primary revenue streams]

## 3. Financial Analysis
| Metric | Value | Comment |
| :--- | :--- | :--- |
| **Revenue Growth** | [Value] | [YoY trend] |
| **Profit Margin** | [Value] | [Efficiency check] |
| **P/E Ratio** | [Value] | [vs Industry Avg] |
*(Narrative analysis of the company's financial health)*

## 4. Key Catalysts
- [Specific upcoming event/product launch]
- [Macro factor helping the company]

## 5. Investment Risks
- [Risk 1]
- [Risk 2]

## 6. Conclusion
[Final verdict: Position size suggestion and time horizon]

### DATA RULES:
1. **CURRENCY CHECK**: Report prices in the currency given in the market data.
2. **NO HALLUCINATIONS**: If financial data is missing, explicitly state 'Data Unavailable'.`

// buildPrompt assembles the user prompt from the ticker and the fetched
// market facts and research findings.
func buildPrompt(ticker string, snapshot *marketdata.Snapshot, findings []research.Finding) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write a professional Investment Memo for '%s'. Follow the STRICT format in your instructions.\n\n", ticker)

	b.WriteString("### MARKET DATA:\n")
	if snapshot != nil {
		if snapshot.Name != "" {
			fmt.Fprintf(&b, "- Company: %s\n", snapshot.Name)
		}
		if snapshot.Sector != "" {
			fmt.Fprintf(&b, "- Sector: %s\n", snapshot.Sector)
		}
		currency := snapshot.Currency
		if currency == "" {
			currency = "USD"
		}
		fmt.Fprintf(&b, "- Current Price: %.2f %s\n", snapshot.Price, currency)
		if snapshot.MarketCap > 0 {
			fmt.Fprintf(&b, "- Market Cap: %.0f %s\n", snapshot.MarketCap, currency)
		}
		if snapshot.PERatio > 0 {
			fmt.Fprintf(&b, "- P/E Ratio: %.2f\n", snapshot.PERatio)
		}
		if snapshot.EPS != 0 {
			fmt.Fprintf(&b, "- EPS: %.2f\n", snapshot.EPS)
		}
		if snapshot.DividendYield > 0 {
			fmt.Fprintf(&b, "- Dividend Yield: %.4f\n", snapshot.DividendYield)
		}
		if snapshot.High52 > 0 && snapshot.Low52 > 0 {
			fmt.Fprintf(&b, "- 52 Week Range: %.2f - %.2f\n", snapshot.Low52, snapshot.High52)
		}
	} else {
		b.WriteString("- Data Unavailable\n")
	}

	b.WriteString("\n### RESEARCH FINDINGS:\n")
	if len(findings) == 0 {
		b.WriteString("- No recent findings available\n")
	}
	for i, f := range findings {
		fmt.Fprintf(&b, "%d. %s\n", i+1, f.Title)
		if f.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", f.Snippet)
		}
		if f.Source != "" {
			fmt.Fprintf(&b, "   Source: %s\n", f.Source)
		}
	}

	return b.String()
}
