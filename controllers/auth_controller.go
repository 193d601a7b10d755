package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/basecampy/authbackend/database"
	"github.com/basecampy/authbackend/dto"
	"github.com/basecampy/authbackend/middleware"
	"github.com/basecampy/authbackend/models"
	"github.com/basecampy/authbackend/utils"
)

func Register(store database.UserStore, mailer utils.Mailer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.RegisterDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondError(c, utils.BindingError(err))
			return
		}

		ctx := c.Request.Context()
		email := utils.NormalizeEmail(body.Email)
		username := utils.NormalizeUsername(body.Username)

		if _, err := store.FindByEmailOrUsername(ctx, email, username); err == nil {
			utils.RespondError(c, utils.Conflict("User already exists"))
			return
		} else if !errors.Is(err, database.ErrUserNotFound) {
			utils.RespondError(c, err)
			return
		}

		hash, err := utils.HashPassword(body.Password)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		temp, err := utils.GenerateTemporaryToken()
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		now := time.Now().UTC()
		user := &models.User{
			ID:                      bson.NewObjectID(),
			Avatar:                  models.Avatar{URL: models.DefaultAvatarURL},
			Username:                username,
			Email:                   email,
			FullName:                strings.TrimSpace(body.FullName),
			PasswordHash:            hash,
			IsEmailVerified:         false,
			EmailVerificationToken:  temp.Hashed,
			EmailVerificationExpiry: temp.ExpiresAt,
			CreatedAt:               now,
			UpdatedAt:               now,
		}

		if err := store.Create(ctx, user); err != nil {
			// Unique index is the backstop for the existence pre-check.
			if utils.IsDuplicateKey(err) {
				utils.RespondError(c, utils.Conflict("User already exists"))
				return
			}
			utils.RespondError(c, err)
			return
		}

		verifyURL := verificationURL(c, temp.Plain)
		utils.DispatchEmail(ctx, "email_verification", user.Email, func(ctx context.Context) error {
			return mailer.SendVerificationEmail(ctx, user.Email, user.Username, verifyURL)
		})

		utils.RespondCreated(c, user, "User registered successfully")
	}
}

func Login(store database.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.LoginDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondError(c, utils.BindingError(err))
			return
		}
		if body.Email == "" && body.Username == "" {
			utils.RespondError(c, utils.BadRequest("Email or username required"))
			return
		}

		ctx := c.Request.Context()
		user, err := store.FindByEmailOrUsername(ctx,
			utils.NormalizeEmail(body.Email),
			utils.NormalizeUsername(body.Username),
		)
		if err != nil {
			if errors.Is(err, database.ErrUserNotFound) {
				utils.RespondError(c, utils.NotFound("User not found"))
				return
			}
			utils.RespondError(c, err)
			return
		}

		if !user.IsEmailVerified {
			utils.RespondError(c, utils.Forbidden("Email not verified"))
			return
		}

		if !utils.CheckPassword(user.PasswordHash, body.Password) {
			utils.RespondError(c, utils.Unauthorized("Invalid credentials"))
			return
		}

		accessToken, refreshToken, err := issueTokenPair(ctx, store, user)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		setAuthCookies(c, accessToken, refreshToken)
		utils.RespondOK(c, gin.H{
			"user": gin.H{
				"id":       user.ID.Hex(),
				"username": user.Username,
				"email":    user.Email,
			},
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
		}, "Login successful")
	}
}

func Logout(store database.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			utils.RespondError(c, utils.Unauthorized("unauthorized request"))
			return
		}

		if err := store.ClearRefreshToken(c.Request.Context(), user.ID); err != nil {
			utils.RespondError(c, err)
			return
		}

		clearAuthCookies(c)
		utils.RespondOK(c, gin.H{}, "Logged out successfully")
	}
}

func GetCurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			utils.RespondError(c, utils.Unauthorized("unauthorized request"))
			return
		}
		utils.RespondOK(c, user, "Current user fetched")
	}
}

func VerifyEmail(store database.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		hashed := utils.HashTemporaryToken(c.Param("token"))

		ctx := c.Request.Context()
		user, err := store.FindByVerificationToken(ctx, hashed, time.Now().UTC())
		if err != nil {
			if errors.Is(err, database.ErrUserNotFound) {
				utils.RespondError(c, utils.BadRequest("Token invalid or expired"))
				return
			}
			utils.RespondError(c, err)
			return
		}

		if err := store.MarkEmailVerified(ctx, user.ID); err != nil {
			utils.RespondError(c, err)
			return
		}

		utils.RespondOK(c, gin.H{"isEmailVerified": true}, "Email verified successfully")
	}
}

func RefreshAccessToken(store database.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		incoming, _ := c.Cookie("refreshToken")
		if incoming == "" {
			var body dto.RefreshTokenDTO
			_ = c.ShouldBindJSON(&body)
			incoming = body.RefreshToken
		}
		if incoming == "" {
			utils.RespondError(c, utils.Unauthorized("unauthorized request"))
			return
		}

		claims, err := utils.ValidateToken(incoming, utils.RefreshSecret())
		if err != nil {
			utils.RespondError(c, utils.Unauthorized("Invalid refresh token"))
			return
		}

		id, err := bson.ObjectIDFromHex(claims.UserID)
		if err != nil {
			utils.RespondError(c, utils.Unauthorized("Invalid refresh token"))
			return
		}

		ctx := c.Request.Context()
		user, err := store.FindByID(ctx, id)
		// A signature-valid token that no longer matches the stored one is
		// stale (rotated away) or forged.
		if err != nil || user.RefreshToken != incoming {
			utils.RespondError(c, utils.Unauthorized("Invalid refresh token"))
			return
		}

		accessToken, refreshToken, err := issueTokenPair(ctx, store, user)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		setAuthCookies(c, accessToken, refreshToken)
		utils.RespondOK(c, gin.H{
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
		}, "Token refreshed")
	}
}

func ChangePassword(store database.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.ChangePasswordDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondError(c, utils.BindingError(err))
			return
		}

		current, ok := middleware.CurrentUser(c)
		if !ok {
			utils.RespondError(c, utils.Unauthorized("unauthorized request"))
			return
		}

		ctx := c.Request.Context()
		user, err := store.FindByID(ctx, current.ID)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		if !utils.CheckPassword(user.PasswordHash, body.OldPassword) {
			utils.RespondError(c, utils.BadRequest("Invalid old password"))
			return
		}

		hash, err := utils.HashPassword(body.NewPassword)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		if err := store.SetPassword(ctx, user.ID, hash); err != nil {
			utils.RespondError(c, err)
			return
		}

		utils.RespondOK(c, gin.H{}, "Password changed successfully")
	}
}

func ResendEmailVerification(store database.UserStore, mailer utils.Mailer) gin.HandlerFunc {
	return func(c *gin.Context) {
		current, ok := middleware.CurrentUser(c)
		if !ok {
			utils.RespondError(c, utils.Unauthorized("unauthorized request"))
			return
		}

		ctx := c.Request.Context()
		user, err := store.FindByID(ctx, current.ID)
		if err != nil {
			if errors.Is(err, database.ErrUserNotFound) {
				utils.RespondError(c, utils.NotFound("User not found"))
				return
			}
			utils.RespondError(c, err)
			return
		}

		if user.IsEmailVerified {
			utils.RespondError(c, utils.BadRequest("Email already verified"))
			return
		}

		temp, err := utils.GenerateTemporaryToken()
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		// Supersedes any pending verification token.
		if err := store.SetVerificationToken(ctx, user.ID, temp.Hashed, temp.ExpiresAt); err != nil {
			utils.RespondError(c, err)
			return
		}

		verifyURL := verificationURL(c, temp.Plain)
		utils.DispatchEmail(ctx, "email_verification", user.Email, func(ctx context.Context) error {
			return mailer.SendVerificationEmail(ctx, user.Email, user.Username, verifyURL)
		})

		utils.RespondOK(c, gin.H{}, "Verification email resent")
	}
}

func ForgotPassword(store database.UserStore, mailer utils.Mailer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.ForgotPasswordDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondError(c, utils.BindingError(err))
			return
		}

		ctx := c.Request.Context()
		user, err := store.FindByEmail(ctx, utils.NormalizeEmail(body.Email))
		if err != nil {
			if errors.Is(err, database.ErrUserNotFound) {
				utils.RespondError(c, utils.NotFound("User not found"))
				return
			}
			utils.RespondError(c, err)
			return
		}

		temp, err := utils.GenerateTemporaryToken()
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		// Supersedes any pending reset token.
		if err := store.SetPasswordResetToken(ctx, user.ID, temp.Hashed, temp.ExpiresAt); err != nil {
			utils.RespondError(c, err)
			return
		}

		resetURL := fmt.Sprintf("%s/%s", os.Getenv("FORGOT_PASSWORD_REDIRECT_URL"), temp.Plain)
		utils.DispatchEmail(ctx, "password_reset", user.Email, func(ctx context.Context) error {
			return mailer.SendPasswordResetEmail(ctx, user.Email, user.Username, resetURL)
		})

		utils.RespondOK(c, gin.H{}, "Password reset email sent")
	}
}

func ResetPassword(store database.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.ResetPasswordDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondError(c, utils.BindingError(err))
			return
		}

		hashed := utils.HashTemporaryToken(c.Param("token"))

		ctx := c.Request.Context()
		user, err := store.FindByPasswordResetToken(ctx, hashed, time.Now().UTC())
		if err != nil {
			if errors.Is(err, database.ErrUserNotFound) {
				utils.RespondError(c, utils.BadRequest("Token invalid or expired"))
				return
			}
			utils.RespondError(c, err)
			return
		}

		hash, err := utils.HashPassword(body.NewPassword)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		// Consumes the token and clears the stored refresh token, so sessions
		// opened with the old credential die here.
		if err := store.ResetPassword(ctx, user.ID, hash); err != nil {
			utils.RespondError(c, err)
			return
		}

		utils.RespondOK(c, gin.H{}, "Password reset successfully")
	}
}

func Healthcheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		utils.RespondOK(c, gin.H{"status": "ok"}, "Health check passed")
	}
}

func issueTokenPair(ctx context.Context, store database.UserStore, user *models.User) (string, string, error) {
	accessToken, err := utils.GenerateAccessToken(user.ID.Hex(), user.Email, user.Username)
	if err != nil {
		return "", "", err
	}
	refreshToken, err := utils.GenerateRefreshToken(user.ID.Hex(), user.Email, user.Username)
	if err != nil {
		return "", "", err
	}
	if err := store.SetRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func setAuthCookies(c *gin.Context, accessToken, refreshToken string) {
	secure := os.Getenv("COOKIE_SECURE") == "true"
	domain := os.Getenv("COOKIE_DOMAIN")

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("accessToken", accessToken, int(utils.AccessTTL().Seconds()), "/", domain, secure, true)
	c.SetCookie("refreshToken", refreshToken, int(utils.RefreshTTL().Seconds()), "/", domain, secure, true)
}

func clearAuthCookies(c *gin.Context) {
	secure := os.Getenv("COOKIE_SECURE") == "true"
	domain := os.Getenv("COOKIE_DOMAIN")

	c.SetCookie("accessToken", "", -1, "/", domain, secure, true)
	c.SetCookie("refreshToken", "", -1, "/", domain, secure, true)
}

func verificationURL(c *gin.Context, token string) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/api/v1/auth/verify-email/%s", scheme, c.Request.Host, token)
}
