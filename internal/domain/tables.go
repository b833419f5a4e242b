package domain

var Tables = []interface{}{
	// System
	&SysOprLog{},
	// Catalog
	&Product{},
	&Pack{},
	&PackItem{},
	// Accounts
	&User{},
	&Property{},
	// Orders
	&Order{},
}
