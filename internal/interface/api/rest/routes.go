package rest

const (
	// api
	RouteApiV1 = "/api/v1"

	// stored files
	RouteFiles = RouteApiV1 + "/files"
	RouteFile  = RouteFiles + "/:file_id"

	// raw storage
	RouteStorage        = RouteApiV1 + "/storage"
	RouteStorageObjects = RouteStorage + "/objects"
	RouteStorageObject  = RouteStorage + "/object"
	RouteStorageContent = RouteStorageObject + "/content"
	RouteStorageExists  = RouteStorageObject + "/exists"
	RouteStorageCopy    = RouteStorageObject + "/copy"
	RouteStorageMove    = RouteStorageObject + "/move"
	RouteStorageStats   = RouteStorage + "/stats"

	// associations
	RouteEntityFiles        = RouteApiV1 + "/entities/:entity_type/:entity_id/files"
	RouteEntityFilesUpload  = RouteEntityFiles + "/upload"
	RouteEntityFilesOrder   = RouteEntityFiles + "/order"
	RouteEntityAssociations = RouteApiV1 + "/entities/:entity_type/:entity_id/associations"
	RouteAssociation        = RouteApiV1 + "/associations/:association_id"
	RouteAssociationPrimary = RouteAssociation + "/primary"

	// ops
	RouteHealth  = RouteApiV1 + "/healthz"
	RouteMetrics = RouteApiV1 + "/metrics"
)
