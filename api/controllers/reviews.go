package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/reviews"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type submitReviewRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Comment   string `json:"comment" validate:"required,max=1000"`
}

func ReviewsSubmit(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("review"))
			return
		}
		userID, err := userFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body submitReviewRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		review, err := svc.Submit(r.Context(), userID, reviews.SubmitInput{
			ProductID: uuid.MustParse(body.ProductID),
			Rating:    body.Rating,
			Comment:   strings.TrimSpace(body.Comment),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusCreated, "Review submitted for approval", review)
	}
}

// ReviewsForProduct lists the approved reviews shown on a product page.
func ReviewsForProduct(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("review"))
			return
		}
		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListForProduct(r.Context(), productID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, page.Items, page.Meta)
	}
}

// AdminReviewsList serves the moderation queue. ?isApproved narrows it to
// approved or pending reviews.
func AdminReviewsList(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("review"))
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := r.URL.Query()
		approved, err := validators.ParseOptionalBool(query, "isApproved")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters := reviews.ListFilters{
			Approved: approved,
			Search:   validators.SanitizeString(query.Get("search"), 100),
		}
		if raw := strings.TrimSpace(query.Get("productId")); raw != "" {
			productID, err := validators.ParseUUIDParam(raw, "productId")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			filters.ProductID = &productID
		}
		page, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, page.Items, page.Meta)
	}
}

func AdminReviewsStats(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("review"))
			return
		}
		stats, err := svc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func AdminReviewsGet(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return reviewAction(svc, logg, "", func(r *http.Request, id uuid.UUID) (*reviews.ReviewDTO, error) {
		return svc.Get(r.Context(), id)
	})
}

func AdminReviewsApprove(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return reviewAction(svc, logg, "Review approved", func(r *http.Request, id uuid.UUID) (*reviews.ReviewDTO, error) {
		return svc.Approve(r.Context(), id)
	})
}

func AdminReviewsReject(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return reviewAction(svc, logg, "Review rejected", func(r *http.Request, id uuid.UUID) (*reviews.ReviewDTO, error) {
		return svc.Reject(r.Context(), id)
	})
}

func AdminReviewsToggleStatus(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return reviewAction(svc, logg, "Review status updated", func(r *http.Request, id uuid.UUID) (*reviews.ReviewDTO, error) {
		return svc.ToggleStatus(r.Context(), id)
	})
}

func AdminReviewsDelete(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("review"))
			return
		}
		id, err := pathUUID(r, "reviewId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "Review deleted", nil)
	}
}

// reviewAction runs fn against the {reviewId} path value. An empty message
// writes a bare success envelope.
func reviewAction(svc reviews.Service, logg *logger.Logger, message string, fn func(*http.Request, uuid.UUID) (*reviews.ReviewDTO, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("review"))
			return
		}
		id, err := pathUUID(r, "reviewId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		review, err := fn(r, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if message == "" {
			responses.WriteSuccess(w, review)
			return
		}
		responses.WriteMessage(w, http.StatusOK, message, review)
	}
}
