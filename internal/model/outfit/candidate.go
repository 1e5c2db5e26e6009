package outfit

// Provenance 标记候选商品来自哪一轮推荐。
type Provenance string

const (
	ProvenanceUnset    Provenance = ""
	ProvenanceNew      Provenance = "new"
	ProvenancePrevious Provenance = "previous"
)

// Candidate 是远端推荐服务返回的一件商品，接收后不可修改。
type Candidate struct {
	ProductID   string     `json:"productId"`
	Name        string     `json:"name"`
	Brand       string     `json:"brand"`
	Price       string     `json:"price"`
	ImageURL    string     `json:"imageUrl"`
	DetailURL   string     `json:"detailUrl"`
	Score       float64    `json:"score"`
	Reason      string     `json:"reason,omitempty"`
	SubCategory string     `json:"subCategory,omitempty"`
	Color       string     `json:"color,omitempty"`
	Fit         string     `json:"fit,omitempty"`
	Pattern     string     `json:"pattern,omitempty"`
	Texture     string     `json:"texture,omitempty"`
	Description string     `json:"description,omitempty"`
	Provenance  Provenance `json:"provenance,omitempty"`
}

// WithProvenance returns a tagged copy; the receiver is left untouched.
func (c Candidate) WithProvenance(p Provenance) Candidate {
	c.Provenance = p
	return c
}

// TagAll 为一组候选生成带标签的副本。
func TagAll(items []Candidate, p Provenance) []Candidate {
	if len(items) == 0 {
		return nil
	}
	tagged := make([]Candidate, len(items))
	for i, item := range items {
		tagged[i] = item.WithProvenance(p)
	}
	return tagged
}

// IndexOf 返回 productID 在集合中的位置，不存在时为 -1。
func IndexOf(items []Candidate, productID string) int {
	for i, item := range items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}
