package controllers

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/basecampy/authbackend/database"
	"github.com/basecampy/authbackend/middleware"
	"github.com/basecampy/authbackend/utils"
)

// POST /api/v1/auth/avatar
func UploadAvatar(store database.UserStore, v *utils.FileValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			utils.RespondError(c, utils.Unauthorized("unauthorized request"))
			return
		}

		fileHeader, err := c.FormFile("avatar")
		if err != nil {
			utils.RespondError(c, utils.BadRequest("avatar file is required"))
			return
		}
		if _, err := v.ValidateFile(fileHeader); err != nil {
			utils.RespondError(c, utils.BadRequest(err.Error()))
			return
		}

		client, bucket, err := utils.NewGCSClient(c)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		defer client.Close()

		ctx := c.Request.Context()
		avatar, err := utils.UploadAvatarToGCS(ctx, client, bucket, user.ID.Hex(), fileHeader)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		if err := store.SetAvatar(ctx, user.ID, *avatar); err != nil {
			utils.RespondError(c, err)
			return
		}

		// Best-effort cleanup of the replaced object.
		if user.Avatar.ObjectName != "" {
			if err := utils.DeleteGCSObject(ctx, client, bucket, user.Avatar.ObjectName); err != nil {
				slog.Warn("failed to delete previous avatar", "object", user.Avatar.ObjectName, "error", err)
			}
		}

		utils.RespondOK(c, avatar, "Avatar updated")
	}
}
