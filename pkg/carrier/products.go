package carrier

// Product codes accepted by the web service.
const (
	ProductParcel                   = "V01PAK"
	ProductParcelInternational      = "V53WPAK"
	ProductParcelEurope             = "V54EPAK"
	ProductLightweight              = "V62WP"
	ProductLightweightInternational = "V66WPI"
)

// returnProcedure is the billing procedure of return shipments.
const returnProcedure = "07"

var procedures = map[string]string{
	ProductParcel:                   "01",
	ProductParcelInternational:      "53",
	ProductParcelEurope:             "54",
	ProductLightweight:              "62",
	ProductLightweightInternational: "66",
}

// IsKnownProduct reports whether code is a supported product code.
func IsKnownProduct(code string) bool {
	_, ok := procedures[code]
	return ok
}

// IsLightweight reports whether the product is a lightweight letter-box
// product that cannot carry preferred-day or cash-on-delivery services.
func IsLightweight(code string) bool {
	return code == ProductLightweight || code == ProductLightweightInternational
}

// BillingNumber derives the 14 digit billing number from the 10 digit
// account number, the product's procedure and the participation number.
func BillingNumber(accountNumber, product, participation string) string {
	return accountNumber + procedures[product] + participation
}

// ReturnBillingNumber derives the billing number used for return labels.
func ReturnBillingNumber(accountNumber, participation string) string {
	return accountNumber + returnProcedure + participation
}
