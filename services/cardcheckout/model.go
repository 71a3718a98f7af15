package cardcheckout

const (
	providerName         = "stripe"
	metadataCheckoutUID  = "checkoutUID"
	metadataDishName     = "dishName"
	serviceFeeLineName   = "Service fee"
	sessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"
)

type CardSessionRequest struct {
	PriceID       string `json:"priceId"`
	Quantity      int    `json:"quantity"`
	DishName      string `json:"dishName"`
	CustomerEmail string `json:"customerEmail,omitempty"`
}

type CardSessionResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId,omitempty"`
}
