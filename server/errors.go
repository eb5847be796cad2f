package server

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/medhist/annotation-iam/errors"
	"github.com/medhist/annotation-iam/identity"
)

// abort records err for ErrorHandler and stops the chain.
func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ErrorHandler writes the response for the last error recorded on the
// context. The cause is logged here and nowhere else; callers only see the
// kind and its description.
func ErrorHandler(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		resp := errors.ResponseFor(err)

		fields := logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": resp.StatusCode,
		}
		if id, ok := identity.FromContext(c.Request.Context()); ok {
			fields["user_id"] = id.UserID
		}
		entry := log.WithFields(fields).WithError(err)
		if resp.StatusCode >= 500 {
			entry.Error("request failed")
		} else {
			entry.Warn("request rejected")
		}

		c.JSON(resp.StatusCode, gin.H{
			"error":             resp.Error.Error(),
			"error_description": resp.Description,
		})
	}
}
