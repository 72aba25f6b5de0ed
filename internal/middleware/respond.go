package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"gatekeeper/internal/domain"
)

// ErrorBody is the JSON shape of every rejection.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var messages = map[string][2]string{
	// code: {en, id}
	"quota_exceeded":      {"Daily limit of %d requests reached for the %s tier.", "Batas harian %d permintaan untuk paket %s telah tercapai."},
	"quota_unavailable":   {"Usage tracking is temporarily unavailable.", "Pencatatan penggunaan sedang tidak tersedia."},
	"unauthenticated":     {"Authentication required.", "Autentikasi diperlukan."},
	"forbidden":           {"Administrator privileges required.", "Hak akses administrator diperlukan."},
	"inactive_account":    {"This account is inactive.", "Akun ini tidak aktif."},
	"unverified_account":  {"Verify your email address first.", "Verifikasi alamat email Anda terlebih dahulu."},
	"insufficient_tier":   {"Your tier does not include this resource.", "Paket Anda tidak mencakup sumber daya ini."},
	"missing_feature":     {"This feature is not available on your tier.", "Fitur ini tidak tersedia pada paket Anda."},
	"invalid_token":       {"The token is invalid.", "Token tidak valid."},
	"expired_token":       {"The token has expired.", "Token sudah kedaluwarsa."},
	"wrong_purpose":       {"The token cannot be used for this action.", "Token tidak dapat digunakan untuk tindakan ini."},
	"not_found":           {"Not found.", "Tidak ditemukan."},
	"unknown_tier":        {"Unknown tier.", "Paket tidak dikenal."},
	"invalid_tier_change": {"The requested tier change is not allowed.", "Perubahan paket tidak diizinkan."},
	"bad_request":         {"Invalid request.", "Permintaan tidak valid."},
	"conflict":            {"The request conflicts with the current state.", "Permintaan bertentangan dengan kondisi saat ini."},
	"rate_limited":        {"Too many requests, slow down.", "Terlalu banyak permintaan, coba lagi nanti."},
	"internal":            {"Internal error.", "Terjadi kesalahan internal."},
}

var (
	supportedLocales = []language.Tag{language.English, language.Indonesian}
	printers         = buildPrinters()
)

func buildPrinters() map[string]*message.Printer {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for code, text := range messages {
		_ = b.SetString(language.English, code, text[0])
		_ = b.SetString(language.Indonesian, code, text[1])
	}
	out := make(map[string]*message.Printer, len(supportedLocales))
	for _, tag := range supportedLocales {
		base, _ := tag.Base()
		out[base.String()] = message.NewPrinter(tag, message.Catalog(b))
	}
	return out
}

// Message renders the text of code in locale, falling back to English.
func Message(locale, code string, args ...any) string {
	p, ok := printers[locale]
	if !ok {
		p = printers["en"]
	}
	if _, known := messages[code]; !known {
		code = "internal"
	}
	return p.Sprintf(code, args...)
}

// StatusFor maps an error from the domain taxonomy to an HTTP status and error code.
func StatusFor(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, domain.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "quota_exceeded"
	case errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrExpiredToken),
		errors.Is(err, domain.ErrPrincipalNotFound),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, domain.ErrInactiveAccount):
		return http.StatusForbidden, "inactive_account"
	case errors.Is(err, domain.ErrUnverifiedAccount):
		return http.StatusForbidden, "unverified_account"
	case errors.Is(err, domain.ErrInsufficientTier):
		return http.StatusForbidden, "insufficient_tier"
	case errors.Is(err, domain.ErrMissingFeature):
		return http.StatusForbidden, "missing_feature"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrWrongPurpose):
		return http.StatusBadRequest, "wrong_purpose"
	case errors.Is(err, domain.ErrUnknownTier):
		return http.StatusBadRequest, "unknown_tier"
	case errors.Is(err, domain.ErrInvalidTierChange):
		return http.StatusBadRequest, "invalid_tier_change"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// WriteError writes the JSON rejection for code in the request locale.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code string, args ...any) {
	writeJSON(w, status, ErrorBody{
		Error:   code,
		Message: Message(LocaleFromContext(r.Context()), code, args...),
	})
}

// WriteErr maps err with StatusFor and writes the rejection.
func WriteErr(w http.ResponseWriter, r *http.Request, err error) {
	status, code := StatusFor(err)
	var qe *domain.QuotaError
	if errors.As(err, &qe) {
		WriteError(w, r, status, code, qe.Limit, qe.Tier)
		return
	}
	WriteError(w, r, status, code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
