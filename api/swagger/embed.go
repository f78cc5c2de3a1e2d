// Package swagger embeds the OpenAPI document of the REST API.
package swagger

import _ "embed"

// FileName is the path under /swagger/ the document is served at.
const FileName = "user.swagger.json"

// Spec is the OpenAPI 2.0 document describing the /user endpoints.
//
//go:embed user.swagger.json
var Spec []byte
