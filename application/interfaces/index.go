package interfaces

// ApplicationContext carries a parsed request body from the transport layer
// into a controller. Ctx is the underlying *gin.Context.
type ApplicationContext[T interface{}] struct {
	Ctx  interface{}
	Body *T
}
