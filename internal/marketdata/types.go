package marketdata

// Snapshot holds the market facts used to ground a memo.
type Snapshot struct {
	Ticker        string  `json:"ticker"`
	Name          string  `json:"name"`
	Sector        string  `json:"sector"`
	Currency      string  `json:"currency"`
	Price         float64 `json:"price"`
	MarketCap     float64 `json:"market_cap"`
	PERatio       float64 `json:"pe_ratio"`
	EPS           float64 `json:"eps"`
	DividendYield float64 `json:"dividend_yield"`
	High52        float64 `json:"high_52"`
	Low52         float64 `json:"low_52"`
}

// quoteResponse is the wire format of the real-time quote endpoint.
type quoteResponse struct {
	Code   string  `json:"code"`
	Close  float64 `json:"close"`
	High52 float64 `json:"hi_250d"`
	Low52  float64 `json:"lo_250d"`
}

// fundamentalsResponse is the wire format of the fundamentals endpoint.
// Only the fields the memo uses are decoded.
type fundamentalsResponse struct {
	General struct {
		Name         string `json:"Name"`
		Sector       string `json:"Sector"`
		CurrencyCode string `json:"CurrencyCode"`
	} `json:"General"`
	Highlights struct {
		MarketCapitalization float64 `json:"MarketCapitalization"`
		PERatio              float64 `json:"PERatio"`
		EarningsShare        float64 `json:"EarningsShare"`
		DividendYield        float64 `json:"DividendYield"`
		WeekHigh52           float64 `json:"52WeekHigh"`
		WeekLow52            float64 `json:"52WeekLow"`
	} `json:"Highlights"`
}
