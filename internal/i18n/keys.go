// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthAccountDisabled    = "auth.account_disabled"
	KeyAuthLoginSuccess       = "auth.login_success"

	// Products
	KeyProductCreated   = "product.created"
	KeyProductUpdated   = "product.updated"
	KeyProductDeleted   = "product.deleted"
	KeyProductNotFound  = "product.not_found"
	KeyProductValidated = "product.validated"
	KeyProductRejected  = "product.rejected"

	// Categories & brands
	KeyCategoryCreated  = "category.created"
	KeyCategoryUpdated  = "category.updated"
	KeyCategoryNotFound = "category.not_found"
	KeyBrandCreated     = "brand.created"
	KeyBrandNotFound    = "brand.not_found"
	KeySlugTaken        = "slug.taken"

	// Users
	KeyUserCreated    = "user.created"
	KeyUserUpdated    = "user.updated"
	KeyUserNotFound   = "user.not_found"
	KeyUserEmailTaken = "user.email_taken"

	// Notifications
	KeyNotificationNotFound = "notification.not_found"
	KeyEvidenceNotFound     = "evidence.not_found"

	// Admin
	KeyAdminAccessDenied = "admin.access_denied"

	// Validation
	KeyValidationInvalid = "validation.invalid"

	// File Upload
	KeyFileUploadSuccess = "file.upload_success"
	KeyFileUploadFailed  = "file.upload_failed"
	KeyFileInvalidType   = "file.invalid_type"
	KeyFileTooLarge      = "file.too_large"

	// Rate limiting
	KeyRateLimited = "rate.limited"
)
