// internal/domain/models/site.go
package models

// DefaultSiteName is shown in page titles and the navbar.
const DefaultSiteName = "سوق هب"

// ProductImagesBucket is the public blob bucket holding listing images.
const ProductImagesBucket = "product-images"
