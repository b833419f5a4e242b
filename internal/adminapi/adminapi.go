// Package adminapi serves the catalog and order administration endpoints
package adminapi

// Init registers every admin route with the web server
func Init() {
	registerProductRoutes()
	registerPackRoutes()
	registerOrderRoutes()
	registerUserRoutes()
	registerPropertyRoutes()
	registerDashboardRoutes()
	registerJobRoutes()
}
