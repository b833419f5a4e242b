// Package storeapi serves the buyer endpoints: catalog browsing, the session cart, ordering and property membership
package storeapi

// Init registers every store route with the web server
func Init() {
	registerCatalogRoutes()
	registerCartRoutes()
	registerOrderRoutes()
	registerPropertyRoutes()
}
