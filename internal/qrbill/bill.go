// Package qrbill defines the payment bill model exchanged over HTTP and the
// narrow interfaces of the rendering and scanning engines.
package qrbill

// Address kinds.
const (
	AddressStructured   = "structured"
	AddressUnstructured = "unstructured"
)

// Address of a creditor or debtor. Structured addresses carry street, house
// number, postal code and town; unstructured ones carry up to two free lines.
type Address struct {
	Type         string `json:"type" binding:"required,oneof=structured unstructured"`
	Name         string `json:"name" binding:"required,max=70"`
	CountryCode  string `json:"countryCode" binding:"required,len=2,alpha"`
	Street       string `json:"street,omitempty" binding:"max=70"`
	HouseNo      string `json:"houseNo,omitempty" binding:"max=16"`
	PostalCode   string `json:"postalCode,omitempty" binding:"required_if=Type structured,max=16"`
	Town         string `json:"town,omitempty" binding:"required_if=Type structured,max=35"`
	AddressLine1 string `json:"addressLine1,omitempty" binding:"max=70"`
	AddressLine2 string `json:"addressLine2,omitempty" binding:"required_if=Type unstructured,max=70"`
}

// Bill is a payment bill as accepted by the generator endpoints.
type Bill struct {
	Amount          float64  `json:"amount" binding:"gte=0,lte=999999999.99"`
	Currency        string   `json:"currency" binding:"required,oneof=CHF EUR"`
	Account         string   `json:"account" binding:"required,min=15,max=34"`
	Creditor        Address  `json:"creditor"`
	Debtor          *Address `json:"debtor,omitempty" binding:"omitempty"`
	Message         string   `json:"message,omitempty" binding:"max=140"`
	BillInformation string   `json:"billInformation,omitempty" binding:"max=140"`
	Reference       string   `json:"reference,omitempty" binding:"max=27"`
}

// SimpleRequest is the query-string form of a bill. It only supports
// unstructured addresses.
type SimpleRequest struct {
	Amount          float64 `form:"amount" binding:"gte=0,lte=999999999.99"`
	Currency        string  `form:"currency" binding:"required,oneof=CHF EUR"`
	Account         string  `form:"account" binding:"required,min=15,max=34"`
	Message         string  `form:"message" binding:"max=140"`
	BillInformation string  `form:"billInformation" binding:"max=140"`
	Reference       string  `form:"reference" binding:"max=27"`

	DebtorName         string `form:"debtor_name" binding:"required,max=70"`
	DebtorCountryCode  string `form:"debtor_country_code" binding:"required,len=2,alpha"`
	DebtorAddressLine1 string `form:"debtor_address_line_1" binding:"max=70"`
	DebtorAddressLine2 string `form:"debtor_address_line_2" binding:"required,max=70"`

	CreditorName         string `form:"creditor_name" binding:"required,max=70"`
	CreditorCountryCode  string `form:"creditor_country_code" binding:"required,len=2,alpha"`
	CreditorAddressLine1 string `form:"creditor_address_line_1" binding:"max=70"`
	CreditorAddressLine2 string `form:"creditor_address_line_2" binding:"required,max=70"`
}

// Bill converts r into a Bill.
func (r SimpleRequest) Bill() Bill {
	return Bill{
		Amount:          r.Amount,
		Currency:        r.Currency,
		Account:         r.Account,
		Message:         r.Message,
		BillInformation: r.BillInformation,
		Reference:       r.Reference,
		Creditor: Address{
			Type:         AddressUnstructured,
			Name:         r.CreditorName,
			CountryCode:  r.CreditorCountryCode,
			AddressLine1: r.CreditorAddressLine1,
			AddressLine2: r.CreditorAddressLine2,
		},
		Debtor: &Address{
			Type:         AddressUnstructured,
			Name:         r.DebtorName,
			CountryCode:  r.DebtorCountryCode,
			AddressLine1: r.DebtorAddressLine1,
			AddressLine2: r.DebtorAddressLine2,
		},
	}
}
