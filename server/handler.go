package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/realtoken-app/go-realtoken/middleware"
	"github.com/realtoken-app/go-realtoken/publicapi"
	"github.com/realtoken-app/go-realtoken/service/auth"
	"github.com/realtoken-app/go-realtoken/service/mint"
	"github.com/realtoken-app/go-realtoken/service/persist"
	"github.com/realtoken-app/go-realtoken/util"
)

// HandlersInit registers every route on the router
func HandlersInit(router *gin.Engine, api *publicapi.PublicAPI) *gin.Engine {
	router.Use(func(c *gin.Context) {
		publicapi.AddTo(c, api)
		c.Next()
	})

	router.GET("/alive", util.HealthCheckHandler())

	v1 := router.Group("/realtoken/v1")

	v1.POST("/auth/signup", signup())
	v1.POST("/auth/login", login())

	authed := v1.Group("", middleware.AuthRequired())
	authed.GET("/users/me", currentUser())

	authed.POST("/assets", createRealAsset())
	authed.GET("/assets", listOwnRealAssets())
	authed.GET("/assets/:id", getRealAsset())
	authed.PUT("/assets/:id", updateRealAsset())
	authed.POST("/assets/:id/submit", submitForApproval())
	authed.POST("/assets/:id/archive", archiveRealAsset())
	authed.POST("/assets/:id/photos", uploadPhoto())
	authed.POST("/assets/:id/tokenize", tokenizeRealAsset())
	authed.POST("/assets/:id/tokenize/confirm", tokenizeRealAssetConfirm())
	authed.GET("/assets/:id/token", getCryptoAsset())
	authed.GET("/tokens", listOwnCryptoAssets())
	authed.GET("/balance/:address", getBalance())

	v1.GET("/marketplace", listActiveRealAssets())

	gov := v1.Group("/gov", middleware.AuthRequired(), middleware.RoleRequired(persist.RoleGov))
	gov.GET("/assets/pending", listPendingRealAssets())
	gov.POST("/assets/:id/approve", approveRealAsset())
	gov.POST("/assets/:id/reject", rejectRealAsset())
	gov.GET("/assets/:id/approvals", listApprovals())

	return router
}

func signup() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input publicapi.CreateUserInput
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}
		result, err := publicapi.For(c).Auth.CreateUser(c, input)
		if err != nil {
			status := http.StatusBadRequest
			if errors.As(err, &persist.ErrUserAlreadyExists{}) {
				status = http.StatusConflict
			}
			util.ErrResponse(c, status, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

func login() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}
		result, err := publicapi.For(c).Auth.Login(c, input.Username, input.Password)
		if err != nil {
			util.ErrResponse(c, http.StatusUnauthorized, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func currentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := publicapi.For(c).Auth.GetUserByID(c, middleware.UserIDFromContext(c))
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func createRealAsset() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input publicapi.CreateRealAssetInput
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}
		asset, err := publicapi.For(c).RealAsset.CreateRealAsset(c, middleware.UserIDFromContext(c), input)
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusCreated, asset)
	}
}

func listOwnRealAssets() gin.HandlerFunc {
	return func(c *gin.Context) {
		assets, err := publicapi.For(c).RealAsset.GetRealAssetsByOwner(c, middleware.UserIDFromContext(c))
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, assets)
	}
}

func listActiveRealAssets() gin.HandlerFunc {
	return func(c *gin.Context) {
		assets, err := publicapi.For(c).RealAsset.GetActiveRealAssets(c)
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, assets)
	}
}

func getRealAsset() gin.HandlerFunc {
	return func(c *gin.Context) {
		asset, err := publicapi.For(c).RealAsset.GetRealAssetByID(c, middleware.UserIDFromContext(c), persist.DBID(c.Param("id")))
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, asset)
	}
}

func updateRealAsset() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input publicapi.CreateRealAssetInput
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}
		asset, err := publicapi.For(c).RealAsset.UpdateRealAsset(c, middleware.UserIDFromContext(c), persist.DBID(c.Param("id")), input)
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, asset)
	}
}

func submitForApproval() gin.HandlerFunc {
	return func(c *gin.Context) {
		asset, err := publicapi.For(c).RealAsset.SubmitForApproval(c, middleware.UserIDFromContext(c), persist.DBID(c.Param("id")))
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, asset)
	}
}

func archiveRealAsset() gin.HandlerFunc {
	return func(c *gin.Context) {
		asset, err := publicapi.For(c).RealAsset.ArchiveRealAsset(c, middleware.UserIDFromContext(c), persist.DBID(c.Param("id")))
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, asset)
	}
}

func uploadPhoto() gin.HandlerFunc {
	return func(c *gin.Context) {
		file, header, err := c.Request.FormFile("photo")
		if err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		url, err := publicapi.For(c).RealAsset.UploadPhoto(c, middleware.UserIDFromContext(c), header.Filename, header.Header.Get("Content-Type"), data)
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"url": url})
	}
}

func tokenizeRealAsset() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			OwnerAddress persist.Address `json:"owner_address" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}
		tx, err := publicapi.For(c).Token.TokenizeRealAsset(c, middleware.UserIDFromContext(c), persist.DBID(c.Param("id")), input.OwnerAddress)
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"transaction": tx})
	}
}

func tokenizeRealAssetConfirm() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			OwnerSignature  string          `json:"owner_signature" binding:"required"`
			RecentBlockhash string          `json:"recent_blockhash" binding:"required"`
			OwnerAddress    persist.Address `json:"owner_address" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}
		txHash, err := publicapi.For(c).Token.TokenizeRealAssetConfirm(c, middleware.UserIDFromContext(c), persist.DBID(c.Param("id")), input.OwnerSignature, input.RecentBlockhash, input.OwnerAddress)
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tx_hash": txHash})
	}
}

func getCryptoAsset() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := publicapi.For(c).Token.GetCryptoAssetByRealAssetID(c, middleware.UserIDFromContext(c), persist.DBID(c.Param("id")))
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, token)
	}
}

func listOwnCryptoAssets() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokens, err := publicapi.For(c).Token.GetCryptoAssetsByOwner(c, middleware.UserIDFromContext(c))
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, tokens)
	}
}

func getBalance() gin.HandlerFunc {
	return func(c *gin.Context) {
		balance, err := publicapi.For(c).Token.GetBalance(c, persist.Address(c.Param("address")))
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"lamports": balance})
	}
}

func listPendingRealAssets() gin.HandlerFunc {
	return func(c *gin.Context) {
		assets, err := publicapi.For(c).Gov.GetPendingRealAssets(c)
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, assets)
	}
}

func approveRealAsset() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Comment string `json:"comment"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}
		asset, err := publicapi.For(c).Gov.ApproveRealAsset(c, middleware.UserIDFromContext(c), persist.DBID(c.Param("id")), input.Comment)
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, asset)
	}
}

func rejectRealAsset() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Comment string `json:"comment"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}
		asset, err := publicapi.For(c).Gov.RejectRealAsset(c, middleware.UserIDFromContext(c), persist.DBID(c.Param("id")), input.Comment)
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, asset)
	}
}

func listApprovals() gin.HandlerFunc {
	return func(c *gin.Context) {
		approvals, err := publicapi.For(c).Gov.GetApprovalHistory(c, persist.DBID(c.Param("id")))
		if err != nil {
			util.ErrResponse(c, errStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, approvals)
	}
}

// errStatus maps domain errors to HTTP status codes. Chain failures read as a generic
// bad gateway since their causes are not actionable by end users.
func errStatus(err error) int {
	switch {
	case errors.As(err, &persist.ErrRealAssetNotFoundByID{}),
		errors.As(err, &persist.ErrCryptoAssetNotFoundByRealAssetID{}),
		errors.As(err, &persist.ErrUserNotFound{}):
		return http.StatusNotFound
	case errors.As(err, &persist.ErrInvalidStatusTransition{}):
		return http.StatusConflict
	case errors.As(err, &auth.ErrRoleRequired{}):
		return http.StatusForbidden
	case errors.As(err, &mint.ErrSubmitFailed{}), errors.As(err, &mint.ErrConfirmationTimeout{}):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}
