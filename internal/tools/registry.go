// Package tools declares the closed, static catalogue of hotel-backend
// operations the LLM may invoke. Declarations are plain Go literals;
// dispatch is a table lookup, not reflective invocation.
package tools

import "net/http"

// FieldType is the JSON Schema-ish type of one argument.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInteger FieldType = "integer"
	TypeBoolean FieldType = "boolean"
)

// ArgumentField describes one argument accepted by a tool.
type ArgumentField struct {
	Name        string
	Type        FieldType
	Required    bool
	Description string
	// Pattern, when non-empty, is a regex the string value must match
	// (used for dates/times).
	Pattern string
	// Min is an inclusive lower bound for integer fields (e.g. numberOfAdults >= 1).
	Min *int
	// In path means the argument is substituted into PathTemplate rather
	// than placed in the request body.
	InPath bool
}

// Declaration is one entry in the closed tool catalogue.
type Declaration struct {
	Name         string
	Description  string
	Method       string
	PathTemplate string
	Arguments    []ArgumentField
}

func intPtr(v int) *int { return &v }

const dateFieldPattern = `^\d{4}-\d{2}-\d{2}$`
const timeFieldPattern = `^\d{2}:\d{2}$`

// Catalogue is the full, closed set of tools the gateway exposes to the
// model.
var Catalogue = []Declaration{
	{
		Name: "rooms_list", Description: "List all hotel rooms.",
		Method: http.MethodGet, PathTemplate: "/api/v1/rooms",
	},
	{
		Name: "rooms_get", Description: "Get a single room by id.",
		Method: http.MethodGet, PathTemplate: "/api/v1/rooms/{id}",
		Arguments: []ArgumentField{
			{Name: "id", Type: TypeString, Required: true, InPath: true},
		},
	},
	{
		Name: "rooms_filter", Description: "Filter rooms by date range and occupancy.",
		Method: http.MethodPost, PathTemplate: "/api/v1/rooms/filter",
		Arguments: []ArgumentField{
			{Name: "checkInDate", Type: TypeString, Required: true, Pattern: dateFieldPattern},
			{Name: "checkOutDate", Type: TypeString, Required: true, Pattern: dateFieldPattern},
			{Name: "numberOfAdults", Type: TypeInteger, Required: true, Min: intPtr(1)},
			{Name: "numberOfChildren", Type: TypeInteger, Required: false, Min: intPtr(0)},
		},
	},
	{
		Name: "reservations_list", Description: "List reservations.",
		Method: http.MethodGet, PathTemplate: "/api/v1/reservations",
	},
	{
		Name: "reservations_get", Description: "Get a single reservation by id.",
		Method: http.MethodGet, PathTemplate: "/api/v1/reservations/{id}",
		Arguments: []ArgumentField{
			{Name: "id", Type: TypeString, Required: true, InPath: true},
		},
	},
	{
		Name: "reservations_create", Description: "Create a room reservation.",
		Method: http.MethodPost, PathTemplate: "/api/v1/reservations",
		Arguments: []ArgumentField{
			{Name: "roomId", Type: TypeString, Required: true},
			{Name: "checkInDate", Type: TypeString, Required: true, Pattern: dateFieldPattern},
			{Name: "checkOutDate", Type: TypeString, Required: true, Pattern: dateFieldPattern},
			{Name: "numberOfAdults", Type: TypeInteger, Required: true, Min: intPtr(1)},
			{Name: "numberOfChildren", Type: TypeInteger, Required: false, Min: intPtr(0)},
		},
	},
	{
		Name: "reservations_update", Description: "Update an existing reservation.",
		Method: http.MethodPut, PathTemplate: "/api/v1/reservations/{id}",
		Arguments: []ArgumentField{
			{Name: "id", Type: TypeString, Required: true, InPath: true},
			{Name: "checkInDate", Type: TypeString, Required: false, Pattern: dateFieldPattern},
			{Name: "checkOutDate", Type: TypeString, Required: false, Pattern: dateFieldPattern},
			{Name: "numberOfAdults", Type: TypeInteger, Required: false, Min: intPtr(1)},
			{Name: "numberOfChildren", Type: TypeInteger, Required: false, Min: intPtr(0)},
		},
	},
	{
		Name: "reservations_cancel", Description: "Cancel a reservation.",
		Method: http.MethodDelete, PathTemplate: "/api/v1/reservations/{id}",
		Arguments: []ArgumentField{
			{Name: "id", Type: TypeString, Required: true, InPath: true},
		},
	},
	{
		Name: "restaurant_menu", Description: "Fetch the restaurant menu.",
		Method: http.MethodGet, PathTemplate: "/api/v1/restaurant/menu",
	},
	{
		Name: "restaurant_table_list", Description: "List restaurant table reservations.",
		Method: http.MethodGet, PathTemplate: "/api/v1/restaurant/reservations",
	},
	{
		Name: "restaurant_table_get", Description: "Get a single restaurant table reservation.",
		Method: http.MethodGet, PathTemplate: "/api/v1/restaurant/reservations/{id}",
		Arguments: []ArgumentField{
			{Name: "id", Type: TypeString, Required: true, InPath: true},
		},
	},
	{
		Name: "restaurant_table_create", Description: "Create a restaurant table reservation.",
		Method: http.MethodPost, PathTemplate: "/api/v1/restaurant/reservations",
		Arguments: []ArgumentField{
			{Name: "tableId", Type: TypeString, Required: true},
			{Name: "date", Type: TypeString, Required: true, Pattern: dateFieldPattern},
			{Name: "time", Type: TypeString, Required: true, Pattern: timeFieldPattern},
			{Name: "numberOfAdults", Type: TypeInteger, Required: true, Min: intPtr(1)},
			{Name: "numberOfChildren", Type: TypeInteger, Required: false, Min: intPtr(0)},
		},
	},
	{
		Name: "restaurant_table_update", Description: "Update a restaurant table reservation.",
		Method: http.MethodPut, PathTemplate: "/api/v1/restaurant/reservations/{id}",
		Arguments: []ArgumentField{
			{Name: "id", Type: TypeString, Required: true, InPath: true},
			{Name: "date", Type: TypeString, Required: false, Pattern: dateFieldPattern},
			{Name: "time", Type: TypeString, Required: false, Pattern: timeFieldPattern},
			{Name: "numberOfAdults", Type: TypeInteger, Required: false, Min: intPtr(1)},
			{Name: "numberOfChildren", Type: TypeInteger, Required: false, Min: intPtr(0)},
		},
	},
	{
		Name: "restaurant_table_cancel", Description: "Cancel a restaurant table reservation.",
		Method: http.MethodDelete, PathTemplate: "/api/v1/restaurant/reservations/{id}",
		Arguments: []ArgumentField{
			{Name: "id", Type: TypeString, Required: true, InPath: true},
		},
	},
}

var byName map[string]Declaration

func init() {
	byName = make(map[string]Declaration, len(Catalogue))
	for _, d := range Catalogue {
		byName[d.Name] = d
	}
}

// Lookup returns the declaration for name, or false if the catalogue has no
// such tool.
func Lookup(name string) (Declaration, bool) {
	d, ok := byName[name]
	return d, ok
}
