package types

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

type VoteType string

const (
	// VoteTypeBuy is a vote that tells the aggregator to buy
	VoteTypeBuy VoteType = "buy"
	// VoteTypeSell is a vote that tells the aggregator to sell
	VoteTypeSell VoteType = "sell"
)

type IndicatorType string

const (
	IndicatorTypeMA            IndicatorType = "ma"
	IndicatorTypeEMA           IndicatorType = "ema"
	IndicatorTypeRSI           IndicatorType = "rsi"
	IndicatorTypeMACD          IndicatorType = "macd"
	IndicatorTypeBollinger     IndicatorType = "bollinger_bands"
	IndicatorTypeVolatility    IndicatorType = "volatility"
	IndicatorTypeFibonacci     IndicatorType = "fibonacci"
	IndicatorTypeTrendStrength IndicatorType = "trend_strength"
)

// Vote is a single discrete signal emitted by one indicator family on the
// latest tick.
type Vote struct {
	// Type is the direction of the vote
	Type VoteType
	// Indicator is the indicator family that emitted the vote
	Indicator IndicatorType
	// Reason is a human-readable justification for the vote
	Reason string
}

// Decision is the advisory result produced by the orchestrator and
// consumed by the driver. Every field is always present; consumers never
// probe an open map.
type Decision struct {
	Action Action `json:"action" yaml:"action"`
	// Amount is the order size in asset units; zero for HOLD.
	Amount float64 `json:"amount" yaml:"amount"`
	Price  float64 `json:"price" yaml:"price"`
	// Confidence is a 0-100 score summarizing how many independent votes
	// agree on the action.
	Confidence int `json:"confidence" yaml:"confidence"`
	Leverage   int `json:"leverage" yaml:"leverage"`
	// InvestmentPercent is the fraction of available balance committed as
	// margin, in percent. Only set for buys.
	InvestmentPercent float64 `json:"investment_percent" yaml:"investment_percent"`
	// Reasons are ordered human-readable justifications for the decision.
	Reasons []string `json:"reasons" yaml:"reasons"`
}
