package docs

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed campaign-api.openapi.yaml
var openAPISpec []byte

//go:embed swagger.html
var swaggerHTML []byte

func OpenAPISpec(c *gin.Context) {
	c.Data(http.StatusOK, "application/yaml", openAPISpec)
}

func SwaggerPage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", swaggerHTML)
}
