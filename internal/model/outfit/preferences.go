package outfit

// Fit 是用户不想要的版型。
type Fit string

const (
	FitNone      Fit = ""
	FitOversized Fit = "오버사이즈"
	FitSlim      Fit = "슬림"
)

// Pattern 是用户不想要的图案。
type Pattern string

const (
	PatternNone   Pattern = ""
	PatternLogo   Pattern = "로고"
	PatternStripe Pattern = "스트라이프"
	PatternCheck  Pattern = "체크"
)

// PriceTier 为价格上限（韩元）。
type PriceTier int

const (
	Price100K PriceTier = 100000
	Price200K PriceTier = 200000
	Price300K PriceTier = 300000
	Price500K PriceTier = 500000

	DefaultPriceTier = Price500K
)

// NegativePreferences 记录用户排除的条件。
type NegativePreferences struct {
	Fit      Fit       `json:"fit,omitempty"`
	Pattern  Pattern   `json:"pattern,omitempty"`
	MaxPrice PriceTier `json:"maxPrice"`
}

// DefaultNegativePreferences 返回未排除任何条件、价格上限 50 万的初始值。
func DefaultNegativePreferences() NegativePreferences {
	return NegativePreferences{MaxPrice: DefaultPriceTier}
}
