// Package adapter normalizes heterogeneous scraped records into the
// canonical ScrapedLead shape. Records are classified by structural shape
// rather than the declared provider id, which is sometimes an opaque
// actor identifier.
package adapter

import (
	"strings"

	"github.com/smc1992/leadgen-ai/internal/model"
)

// Profile-record markers: person name parts, title fields, or a nested
// basic-profile object.
var profileKeys = []string{
	"firstName", "first_name", "lastName", "last_name",
	"headline", "jobTitle", "job_title", "occupation", "position",
	"basicProfile", "basic_info", "publicProfileUrl", "linkedinUrl",
}

// Place-record markers: place ids, map URLs, formatted addresses,
// categories, review counts, geo objects.
var placeKeys = []string{
	"placeId", "place_id", "mapUrl", "googleMapsUrl",
	"formattedAddress", "totalScore", "reviewsCount", "userRatingsTotal",
	"categoryName", "categories", "types", "gps", "location",
}

// Classify picks the mapping for a raw record by structural shape, in
// priority order: professional profile, business directory, validator
// result, unknown. The provider hint breaks ties only when the structure
// matches nothing.
func Classify(rec map[string]any, provider string) model.Channel {
	if len(rec) == 0 {
		return model.ChannelUnknown
	}
	if hasAny(rec, profileKeys...) {
		return model.ChannelLinkedIn
	}
	if hasAny(rec, placeKeys...) {
		return model.ChannelMaps
	}
	if hasAny(rec, "email") {
		return model.ChannelValidator
	}
	return channelFromProvider(provider)
}

// channelFromProvider recognizes human-readable provider ids. Opaque actor
// ids fall through to unknown.
func channelFromProvider(provider string) model.Channel {
	p := strings.ToLower(provider)
	switch {
	case strings.Contains(p, "linkedin"):
		return model.ChannelLinkedIn
	case strings.Contains(p, "maps"), strings.Contains(p, "places"):
		return model.ChannelMaps
	case strings.Contains(p, "valid"), strings.Contains(p, "verify"):
		return model.ChannelValidator
	default:
		return model.ChannelUnknown
	}
}

// Adapt turns one raw provider record into exactly one ScrapedLead. It is
// total: any input, including nil, yields a well-formed record. Unrecognized
// shapes map to an empty record with channel "unknown".
func Adapt(rec map[string]any, provider string) model.ScrapedLead {
	switch Classify(rec, provider) {
	case model.ChannelLinkedIn:
		return mapProfile(rec)
	case model.ChannelMaps:
		return mapPlace(rec)
	case model.ChannelValidator:
		return mapValidator(rec)
	default:
		return model.ScrapedLead{Channel: model.ChannelUnknown, EmailStatus: model.EmailStatusUnknown}
	}
}

// AdaptAll maps a result dataset through Adapt.
func AdaptAll(items []map[string]any, provider string) []model.ScrapedLead {
	out := make([]model.ScrapedLead, 0, len(items))
	for _, item := range items {
		out = append(out, Adapt(item, provider))
	}
	return out
}

func mapProfile(rec map[string]any) model.ScrapedLead {
	// Older actor versions nest the person fields under a basic-profile
	// object; flat keys take priority over nested ones.
	merged := rec
	if nested := nestedMap(rec, "basicProfile", "basic_info", "profile"); nested != nil {
		merged = make(map[string]any, len(rec)+len(nested))
		for k, v := range nested {
			merged[k] = v
		}
		for k, v := range rec {
			merged[k] = v
		}
	}

	fullName := stringField(merged, "fullName", "full_name", "name")
	if fullName == "" {
		first := stringField(merged, "firstName", "first_name")
		last := stringField(merged, "lastName", "last_name")
		fullName = strings.TrimSpace(first + " " + last)
	}

	lead := model.ScrapedLead{
		FullName:    fullName,
		JobTitle:    stringField(merged, "jobTitle", "job_title", "headline", "occupation", "position", "title"),
		Company:     stringField(merged, "companyName", "company", "organization", "currentCompany"),
		Email:       stringField(merged, "email", "emailAddress"),
		Phone:       stringField(merged, "phone", "phoneNumber", "mobileNumber"),
		City:        stringField(merged, "city", "geoLocationName", "location"),
		Country:     stringField(merged, "country", "countryCode"),
		Region:      stringField(merged, "region", "state"),
		WebsiteURL:  stringField(merged, "website", "site", "domain"),
		SourceURL:   stringField(merged, "profileUrl", "publicProfileUrl", "linkedinUrl", "url"),
		Channel:     model.ChannelLinkedIn,
		EmailStatus: model.EmailStatusUnknown,
	}

	if company := nestedMap(merged, "company", "currentCompany"); company != nil {
		if lead.Company == "" {
			lead.Company = stringField(company, "name", "companyName")
		}
		if lead.WebsiteURL == "" {
			lead.WebsiteURL = stringField(company, "website", "site", "domain", "url")
		}
	}

	return lead
}

func mapPlace(rec map[string]any) model.ScrapedLead {
	lead := model.ScrapedLead{
		Company:     stringField(rec, "title", "name", "companyName"),
		Email:       stringField(rec, "email"),
		Phone:       stringField(rec, "phone", "phoneNumber", "internationalPhoneNumber", "phoneUnformatted"),
		WebsiteURL:  stringField(rec, "website", "site", "domain"),
		Address:     stringField(rec, "address", "formattedAddress", "street"),
		City:        stringField(rec, "city"),
		Country:     stringField(rec, "country", "countryCode"),
		PostalCode:  stringField(rec, "postalCode", "postal_code", "zip"),
		Region:      stringField(rec, "state", "region"),
		SourceURL:   stringField(rec, "mapUrl", "googleMapsUrl", "url", "link"),
		Categories:  stringSliceField(rec, "categories", "types", "categoryName"),
		Channel:     model.ChannelMaps,
		EmailStatus: model.EmailStatusUnknown,
	}

	// Website may only exist as the generic url key; never reuse the value
	// already taken as the map URL.
	if lead.WebsiteURL == "" {
		if u := stringField(rec, "url"); u != "" && u != lead.SourceURL {
			lead.WebsiteURL = u
		}
	}

	if emails := stringSliceField(rec, "emails", "contactEmails"); len(emails) > 0 {
		if lead.Email == "" {
			lead.Email = emails[0]
		}
		lead.ContactEmails = emails
	}

	lead.Lat = floatField(rec, "lat", "latitude")
	lead.Lng = floatField(rec, "lng", "lon", "longitude")
	if coords := nestedMap(rec, "location", "gps", "coordinates", "latLng"); coords != nil {
		if lead.Lat == nil {
			lead.Lat = floatField(coords, "lat", "latitude")
		}
		if lead.Lng == nil {
			lead.Lng = floatField(coords, "lng", "lon", "longitude")
		}
	}

	lead.RatingAvg = floatField(rec, "totalScore", "rating", "stars")
	lead.RatingCount = intField(rec, "reviewsCount", "userRatingsTotal", "ratingCount")
	if rating := nestedMap(rec, "rating"); rating != nil {
		if lead.RatingAvg == nil {
			lead.RatingAvg = floatField(rating, "average", "value", "score")
		}
		if lead.RatingCount == nil {
			lead.RatingCount = intField(rating, "count", "total")
		}
	}

	return lead
}

func mapValidator(rec map[string]any) model.ScrapedLead {
	return model.ScrapedLead{
		Email:       stringField(rec, "email"),
		FullName:    stringField(rec, "name", "fullName"),
		Channel:     model.ChannelValidator,
		EmailStatus: validatorStatus(stringField(rec, "status", "result", "verdict")),
	}
}

// validatorStatus folds the provider's verdict vocabulary into the closed
// email-status set.
func validatorStatus(verdict string) model.EmailStatus {
	switch strings.ToLower(strings.TrimSpace(verdict)) {
	case "valid", "deliverable", "ok", "safe":
		return model.EmailStatusValid
	case "invalid", "undeliverable", "bad", "bounce":
		return model.EmailStatusInvalid
	default:
		return model.EmailStatusUnknown
	}
}
