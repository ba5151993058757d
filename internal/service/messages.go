package service

// Response messages shown to API clients.
const (
	MsgSuccess             = "Operation successful"
	MsgInternalServerError = "Internal server error"
	MsgInvalidInput        = "Invalid input data"
	MsgInvalidQuery        = "Invalid query parameters"
	MsgUnauthorized        = "Unauthorized access"
	MsgForbidden           = "Access forbidden"
	MsgHealthy             = "Service is healthy"
)

const (
	MsgLoginSuccess        = "Login successful"
	MsgLoginFailed         = "Invalid username or password"
	MsgLogoutSuccess       = "Logout successful"
	MsgTokenRefreshSuccess = "Token refreshed successfully"
	MsgNoAccessToken       = "No access token provided"
	MsgNoRefreshToken      = "No refresh token found"
	MsgInvalidToken        = "Invalid or expired token"
	MsgInvalidTokenType    = "Invalid token type"
	MsgInvalidRefreshToken = "Invalid refresh token"
	MsgSessionExpired      = "Session expired due to inactivity"
)

const (
	MsgUsersRetrieved        = "Users retrieved successfully"
	MsgUserRetrieved         = "User profile retrieved successfully"
	MsgCurrentUser           = "Current user retrieved successfully"
	MsgUserNotFound          = "User not found"
	MsgUserExists            = "User already exists"
	MsgUserCreated           = "User created successfully"
	MsgUserUpdated           = "User updated successfully"
	MsgUserDeleted           = "User deleted successfully"
	MsgRolesRetrieved        = "Roles retrieved successfully"
	MsgRoleNotFound          = "Role not found"
	MsgCamerasRetrieved      = "Cameras retrieved successfully"
	MsgCameraNotFound        = "Camera not found"
	MsgCameraExists          = "Camera with this name and base URL already exists"
	MsgCameraCreated         = "Camera created successfully"
	MsgCameraUpdated         = "Camera updated successfully"
	MsgCameraDeleted         = "Camera deleted successfully"
	MsgCameraCredentials     = "Camera credentials retrieved successfully"
	MsgWorkstationsRetrieved = "Workstations retrieved successfully"
	MsgWorkstationNotFound   = "Workstation not found"
	MsgWorkstationExists     = "Workstation with this camera already exists"
	MsgWorkstationCreated    = "Workstation created successfully"
	MsgWorkstationUpdated    = "Workstation updated successfully"
	MsgWorkstationDeleted    = "Workstation deleted successfully"
)

const (
	MsgPackingRetrieved      = "Packing items retrieved successfully"
	MsgPackingNotFound       = "Packing item not found"
	MsgScanStartSuccess      = "Packing started successfully"
	MsgScanEndSuccess        = "Packing ended successfully"
	MsgPackingAlreadyStarted = "Packing already started for this barcode"
	MsgPackingNotStarted     = "No active packing found for this barcode"
	MsgReprocessSuccess      = "Packing item queued for reprocessing"
	MsgReprocessInvalid      = "Packing item is still being scanned"
	MsgProcessAccepted       = "Packing item sent for processing"
	MsgProcessInvalid        = "Packing item is not ready for processing"
)

const (
	MsgClipsRetrieved = "Clips retrieved successfully"
	MsgClipNotFound   = "Clip not found"
	MsgClipURL        = "Signed URL generated successfully"
)

const (
	MsgBatchRetrieved    = "Batch jobs retrieved successfully"
	MsgBatchNotFound     = "Batch job not found"
	MsgBatchTriggered    = "Batch job triggered successfully"
	MsgBatchRunning      = "A batch job is already running"
	MsgBatchNoReadyItems = "No items ready for batch processing"
	MsgBatchItemNotFound = "Batch job item not found"
	MsgBatchItemStarted  = "Batch job item marked as processing"
	MsgBatchItemRecorded = "Batch job item result recorded"
	MsgBatchItemResolved = "Batch job item already resolved"
	MsgBatchTimedOut     = "batch job timed out"
)
