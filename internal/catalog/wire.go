package catalog

import (
	"encoding/json"
	"errors"
	"strings"
)

// flexString accepts a JSON string or number; the platform is inconsistent
// about quoting ids and prices.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	*f = flexString(b)
	return nil
}

// wireList decodes either a bare array or an object wrapping one array,
// e.g. {"product":[...]}.
type wireList[T any] []T

func (l *wireList[T]) UnmarshalJSON(b []byte) error {
	var direct []T
	if err := json.Unmarshal(b, &direct); err == nil {
		*l = direct
		return nil
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}
	for _, raw := range wrapped {
		if err := json.Unmarshal(raw, &direct); err == nil {
			*l = direct
			return nil
		}
	}
	if len(wrapped) == 0 {
		*l = nil
		return nil
	}
	return errors.New("unexpected list shape")
}

type wireProduct struct {
	ProductID           flexString `json:"product_id"`
	Title               string     `json:"product_title"`
	TargetOriginalPrice flexString `json:"target_original_price"`
	TargetSalePrice     flexString `json:"target_sale_price"`
	TargetCurrency      string     `json:"target_sale_price_currency"`
	OriginalPrice       flexString `json:"original_price"`
	SalePrice           flexString `json:"sale_price"`
	MainImageURL        string     `json:"product_main_image_url"`
	DetailURL           string     `json:"product_detail_url"`
	PromotionLink       string     `json:"promotion_link"`
	EvaluateRate        flexString `json:"evaluate_rate"`
	SoldLast30Days      flexString `json:"30days_sold_count"`
	LatestVolume        flexString `json:"lastest_volume"`
	CategoryID          flexString `json:"first_level_category_id"`
}

type productList struct {
	TotalResults flexString            `json:"total_results"`
	Products     wireList[wireProduct] `json:"products"`
}

type wireCategory struct {
	ID       flexString `json:"category_id"`
	Name     string     `json:"category_name"`
	ParentID flexString `json:"parent_category_id"`
}

type categoryList struct {
	Categories wireList[wireCategory] `json:"categories"`
}

type wirePromotionLink struct {
	PromotionLink string `json:"promotion_link"`
	SourceValue   string `json:"source_value"`
}

type promotionLinkList struct {
	Links wireList[wirePromotionLink] `json:"promotion_links"`
}
