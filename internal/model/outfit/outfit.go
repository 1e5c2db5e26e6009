package outfit

import "time"

// SelectedItem 是用户在某个品类最终选中的商品。
type SelectedItem struct {
	ProductID   string `json:"productId"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	SubCategory string `json:"subCategory,omitempty"`
	Brand       string `json:"brand"`
	Price       string `json:"price"`
	ImageURL    string `json:"imageUrl"`
	DetailURL   string `json:"detailUrl"`
	Color       string `json:"color,omitempty"`
	Fit         string `json:"fit,omitempty"`
	Pattern     string `json:"pattern,omitempty"`
	Texture     string `json:"texture,omitempty"`
	Description string `json:"description,omitempty"`
}

// FinalOutfit 汇总全部品类的选择结果，Items 按品类顺序排列。
type FinalOutfit struct {
	TPO        string         `json:"tpo"`
	TotalCount int            `json:"totalCount"`
	Items      []SelectedItem `json:"items"`
}

// Lookbook 是可分享的穿搭页面。
type Lookbook struct {
	OutfitID    string    `json:"outfitId"`
	LookbookURL string    `json:"lookbookUrl"`
	QRCodeURL   string    `json:"qrCodeUrl,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt"`
}
