package service

import (
	"strings"

	"github.com/sxxm/medcheck/backend/internal/models"
)

// allergenTriggers maps each food allergy category to the keywords that betray it in
// ingredient or label text. Keywords are stored lower-case.
var allergenTriggers = map[models.FoodAllergyCategory][]string{
	models.FoodCategoryNuts: {
		"peanut", "peanut oil", "arachis oil", "walnut", "almond", "hazelnut", "cashew", "pistachio", "nuts",
		"땅콩", "땅콩유", "땅콩기름", "호두", "아몬드", "헤이즐넛", "캐슈넛", "피스타치오", "견과류",
	},
	models.FoodCategoryDairyEgg: {
		"milk", "casein", "whey", "lactose", "milk protein", "egg", "egg white", "albumin", "ovalbumin", "lysozyme",
		"우유", "카제인", "유청", "유당", "락토스", "우유단백질", "계란", "난백", "알부민", "라이소자임",
	},
	models.FoodCategorySeafood: {
		"shrimp", "crab", "lobster", "crustacean", "shellfish", "fish", "chitosan", "glucosamine",
		"새우", "꽃게", "크랩", "랍스터", "갑각류", "조개", "생선", "키토산", "글루코사민",
	},
	models.FoodCategoryGrainsGluten: {
		"gluten", "wheat", "wheat starch", "wheat protein", "barley", "rye", "oatmeal", "oat flour",
		"글루텐", "밀", "밀전분", "밀단백질", "보리", "호밀", "귀리",
	},
	models.FoodCategorySoy: {
		"soy", "soybean", "soybean oil", "lecithin", "soy lecithin",
		"대두", "콩", "콩유", "대두유", "레시틴", "대두레시틴",
	},
	models.FoodCategorySeeds: {
		"sesame", "sesame oil", "sesame seed", "mustard", "sunflower", "flaxseed",
		"참깨", "참기름", "겨자", "해바라기씨", "아마씨",
	},
	models.FoodCategoryOther: {
		"gelatin", "bovine gelatin", "porcine gelatin", "gelatin capsule", "carmine", "cochineal",
		"젤라틴", "소젤라틴", "돼지젤라틴", "코치닐", "카민",
	},
}

// DetectAllergenTriggers scans text for the trigger keywords of each given category and returns
// the keywords found. Matching is a case-insensitive substring search; unknown categories are
// ignored. Output follows category order, then table order, without duplicates.
func DetectAllergenTriggers(text string, categories []string) []string {
	found := []string{}
	haystack := strings.ToLower(text)
	if strings.TrimSpace(haystack) == "" {
		return found
	}

	seen := make(map[string]struct{})
	for _, raw := range categories {
		category, ok := models.ParseFoodAllergyCategory(raw)
		if !ok {
			continue
		}
		for _, keyword := range allergenTriggers[category] {
			if _, dup := seen[keyword]; dup {
				continue
			}
			if strings.Contains(haystack, keyword) {
				seen[keyword] = struct{}{}
				found = append(found, keyword)
			}
		}
	}
	return found
}
