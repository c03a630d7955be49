// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthSignInSuccess      = "auth.signin_success"
	KeyAuthSignOutSuccess     = "auth.signout_success"
	KeyAuthSignUpSuccess      = "auth.signup_success"
	KeyAuthSignUpFailed       = "auth.signup_failed"
	KeyAccessDenied           = "auth.access_denied"

	// Products
	KeyProductCreated  = "product.created"
	KeyProductUpdated  = "product.updated"
	KeyProductNotFound = "product.not_found"
	KeyCatalogEmpty    = "catalog.empty"

	// Checkout
	KeyCheckoutSuccess       = "checkout.success"
	KeyCheckoutFailed        = "checkout.failed"
	KeyCheckoutInProgress    = "checkout.in_progress"
	KeyOrderCreationFailed   = "checkout.order_creation_failed"
	KeyLicenseCreationFailed = "checkout.license_creation_failed"
	KeyInventoryUpdateFailed = "checkout.inventory_update_failed"
	KeyPaymentFailed         = "payment.failed"

	// Orders & licenses
	KeyOrderNotFound   = "order.not_found"
	KeyOrderRefunded   = "order.refunded"
	KeyLicenseNotFound = "license.not_found"

	// Reviews, favorites & profiles
	KeyReviewCreated   = "review.created"
	KeyFavoriteAdded   = "favorite.added"
	KeyFavoriteRemoved = "favorite.removed"
	KeyProfileUpdated  = "profile.updated"
	KeyUserNotFound    = "user.not_found"

	// Uploads
	KeyFileUploadFailed  = "file.upload_failed"
	KeyFileUploadSuccess = "file.upload_success"

	// Generic
	KeyConflict    = "error.conflict"
	KeyInternal    = "error.internal"
	KeyNotFound    = "error.not_found"
	KeyRateLimited = "error.rate_limited"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"
)
