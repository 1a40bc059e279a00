package extract

// Google Maps ships obfuscated, rotating class names. The chains below
// layer the currently observed classes over older generations and
// generic structural fallbacks, so a markup rotation costs one strategy,
// not the field.

// DefaultCandidateRegistry extracts listing-level fields from a search
// result card.
func DefaultCandidateRegistry() Registry {
	return Registry{
		FieldName: {
			Text("div.qBF1Pd"),
			Text("div.fontHeadlineSmall"),
			Attr("a.hfpxzc", "aria-label"),
			FromHTML("div.qBF1Pd"),
		},
		FieldAddress: {
			Text("div.W4Efsd > div > span:nth-of-type(2)"),
			Text("div.W4Efsd span[jstcache]"),
			Text("span.fontBodyMedium"),
		},
		FieldRating: {
			Text("span.MW4etd"),
			Attr("span.ZkP5Je", "aria-label"),
		},
	}
}

// DefaultReviewRegistry extracts per-review fields from a review card.
func DefaultReviewRegistry() Registry {
	return Registry{
		FieldReviewer: {
			Text("div.d4r55"),
			Text("div.WNxzHc"),
			Text("button[jsaction*='review.reviewerLink'] div"),
			Attr("button[aria-label]", "aria-label"),
		},
		FieldText: {
			Text("span.wiI7pd"),
			Text("span.review-full-text"),
			Text("div.MyEned"),
			Text("div.review-content"),
			FromHTML("span.wiI7pd"),
		},
		FieldRating: {
			Attr("span.kvMYJc", "aria-label"),
			Attr("span[role='img']", "aria-label"),
			StarCount("img[src*='star_active']"),
			StarCount("span.vzX5Ic"),
		},
		FieldDate: {
			Text("span.rsqaWe"),
			Text("span.dehysf"),
			Text("span[class*='date']"),
		},
	}
}

// DismissSelectors match consent and sign-in interstitials that cover
// the page on first navigation.
var DismissSelectors = []string{
	"button[aria-label*='Accept']",
	"button[aria-label*='Tout accepter']",
	"form[action*='consent'] button",
	"button[jsname='higCR']",
	"div[role='dialog'] button:nth-of-type(2)",
}

// CandidateSelectors match one search result card each.
var CandidateSelectors = []string{
	"div.Nv2PK",
	"div[jsaction*='mouseover:pane']",
	"div[role='article']",
}

// ReviewSelectors match one review card each.
var ReviewSelectors = []string{
	"div.jftiEf",
	"div[data-review-id]",
	"div.gws-localreviews__google-review",
	"div.jJc9Ad",
}

// FeedSelectors match the scrollable pane that lazily loads more items.
var FeedSelectors = []string{
	"div[role='feed']",
	"div.m6QErb.DxyBCb.kA9KIf.dS8AEf",
	"div.m6QErb",
	"div.lXJj5c.Hk4XGb",
}

// ExpandSelectors match the per-review affordance that reveals truncated
// text.
var ExpandSelectors = []string{
	"button.w8nwRe",
	"button[aria-label*='See more']",
	"button[jsaction*='review.expandReview']",
}

// ReviewTabSelectors match the control that switches the place panel to
// its reviews section.
var ReviewTabSelectors = []string{
	"button[aria-label*='Reviews']",
	"button[aria-label*='avis']",
	"button[jsaction*='pane.rating.moreReviews']",
	"div[role='tablist'] button:nth-of-type(2)",
}
