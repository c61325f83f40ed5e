package aggregator

// Wire shapes of the aggregator's REST API. Identifiers are numeric on the
// aggregator side and mapped to string references by the data mapper.

// Connection is one bank connection belonging to an aggregator user
type Connection struct {
	ID         int64     `json:"id"`
	IDUser     int64     `json:"id_user"`
	IDBank     int64     `json:"id_bank"`
	State      string    `json:"state"`
	Active     bool      `json:"active"`
	LastUpdate string    `json:"last_update,omitempty"`
	Bank       *Bank     `json:"bank,omitempty"`
	Accounts   []Account `json:"accounts,omitempty"`
}

// Bank is the institution behind a connection
type Bank struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Account is one bank account
type Account struct {
	ID           int64         `json:"id"`
	IDConnection int64         `json:"id_connection"`
	Number       string        `json:"number,omitempty"`
	Name         string        `json:"name"`
	Balance      float64       `json:"balance"`
	Currency     *Currency     `json:"currency,omitempty"`
	IBAN         string        `json:"iban,omitempty"`
	BIC          string        `json:"bic,omitempty"`
	Type         string        `json:"type"`
	Usage        string        `json:"usage,omitempty"`
	Disabled     bool          `json:"disabled,omitempty"`
	Transactions []Transaction `json:"transactions,omitempty"`
}

// Currency is the ISO currency attached to an account or transaction
type Currency struct {
	ID string `json:"id"`
}

// Transaction is one bank transaction
type Transaction struct {
	ID                int64     `json:"id"`
	IDAccount         int64     `json:"id_account"`
	IDCategory        int64     `json:"id_category,omitempty"`
	Value             float64   `json:"value"`
	Type              string    `json:"type,omitempty"`
	OriginalWording   string    `json:"original_wording"`
	Wording           string    `json:"wording,omitempty"`
	SimplifiedWording string    `json:"simplified_wording,omitempty"`
	Currency          *Currency `json:"original_currency,omitempty"`
	Date              string    `json:"date"`
	Coming            bool      `json:"coming,omitempty"`
}

// Category is a transaction category
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// OwnerInfo is the identity information attached to a connection
type OwnerInfo struct {
	Owner struct {
		Name string `json:"name"`
	} `json:"owner"`
}

// AccessToken is the permanent token returned by the code exchange
type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// JWTResponse is returned by the JWT issuance endpoint
type JWTResponse struct {
	Token   string `json:"jwt_token"`
	Payload struct {
		Domain string `json:"domain"`
	} `json:"payload"`
}

// AnonymousUser is the temporary session created for a new user
type AnonymousUser struct {
	AuthToken string `json:"auth_token"`
	Type      string `json:"type"`
	IDUser    int64  `json:"id_user"`
}

type connectionsResponse struct {
	Connections []Connection `json:"connections"`
}

type accountsResponse struct {
	Accounts []Account `json:"accounts"`
}

type transactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
}
