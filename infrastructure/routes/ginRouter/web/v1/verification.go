package routev1

import (
	"github.com/gin-gonic/gin"
	apperrors "github.com/louskac/VHP/application/appErrors"
	"github.com/louskac/VHP/application/controller"
	"github.com/louskac/VHP/application/controller/dto"
	"github.com/louskac/VHP/application/interfaces"
)

func VerificationRouter(router *gin.RouterGroup) {
	verificationRouter := router.Group("/verification")
	{
		verificationRouter.POST("/challenge", func(ctx *gin.Context) {
			controller.RequestChallenge(&interfaces.ApplicationContext[any]{
				Ctx: ctx,
			})
		})

		verificationRouter.POST("/submit", func(ctx *gin.Context) {
			var body dto.SubmitVerificationDTO
			if err := ctx.ShouldBindJSON(&body); err != nil {
				apperrors.ErrorProcessingPayload(ctx)
				return
			}
			controller.SubmitVerification(&interfaces.ApplicationContext[dto.SubmitVerificationDTO]{
				Ctx:  ctx,
				Body: &body,
			})
		})
	}
}
