package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/kinfortune-backend/api/middleware"
	"github.com/angelmondragon/kinfortune-backend/api/responses"
	"github.com/angelmondragon/kinfortune-backend/api/validators"
	"github.com/angelmondragon/kinfortune-backend/internal/numerology"
	pkgerrors "github.com/angelmondragon/kinfortune-backend/pkg/errors"
	"github.com/angelmondragon/kinfortune-backend/pkg/logger"
)

const (
	msgBirthdayRequired = "誕生日を指定してください"
	msgBirthdayMissing  = "アカウントに誕生日が登録されていません"
	msgInvalidKin       = "KINは数値で指定してください"
)

// Clock returns the current time; tests pin it.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

// FortuneFree returns the public teaser reading for ?birthday.
func FortuneFree(svc *numerology.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := validators.QueryString(r, "birthday")
		if raw == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, msgBirthdayRequired))
			return
		}
		birthday, err := numerology.ParseBirthday(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reading, err := svc.FreeReading(birthday)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reading)
	}
}

// Fortune returns the full reading for the caller's registered birthday at ?age.
func Fortune(svc *numerology.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := middleware.BirthdayFromContext(r.Context())
		if raw == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, msgBirthdayMissing))
			return
		}
		birthday, err := numerology.ParseBirthday(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		age, err := validators.ParseQueryInt(r, "age", 0, 0, numerology.MaxAge)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reading, err := svc.Reading(birthday, age)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reading)
	}
}

// FortuneCompatibility compares ?birthday (defaulting to the caller's own)
// with ?partnerBirthday as of today.
func FortuneCompatibility(svc *numerology.Service, now Clock, logg *logger.Logger) http.HandlerFunc {
	if now == nil {
		now = utcNow
	}
	return func(w http.ResponseWriter, r *http.Request) {
		raw := validators.QueryString(r, "birthday")
		if raw == "" {
			raw = middleware.BirthdayFromContext(r.Context())
		}
		self, partner, err := numerology.ParseBirthdayPair(raw, validators.QueryString(r, "partnerBirthday"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Compatibility(self, partner, now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func KakeList(svc *numerology.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tables := svc.Tables()
		all := tables.AllKake()
		lo, hi := tables.KinRange()
		responses.WriteSuccess(w, map[string]any{
			"kake":     all,
			"count":    len(all),
			"kinRange": map[string]int{"min": lo, "max": hi},
		})
	}
}

func KakeByKin(svc *numerology.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kin, err := strconv.Atoi(chi.URLParam(r, "kin"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, msgInvalidKin))
			return
		}
		kake, err := svc.KakeByKin(kin)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"kin": kin, "kake": kake})
	}
}
