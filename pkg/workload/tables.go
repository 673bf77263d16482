package workload

// TableStat is a static row/index estimate for one catalog table.
type TableStat struct {
	Name    string
	Rows    float64
	Indexes int
}

const imdbFKCount = 19

var imdbTables = []TableStat{
	{"aka_name", 901343, 2},
	{"aka_title", 361472, 3},
	{"cast_info", 36244344, 5},
	{"char_name", 3140339, 1},
	{"comp_cast_type", 4, 1},
	{"company_name", 234997, 1},
	{"company_type", 4, 1},
	{"complete_cast", 135086, 4},
	{"info_type", 113, 1},
	{"keyword", 134170, 1},
	{"kind_type", 7, 1},
	{"link_type", 18, 1},
	{"movie_companies", 2609129, 4},
	{"movie_info", 14835720, 3},
	{"movie_info_idx", 1380035, 3},
	{"movie_keyword", 4523930, 3},
	{"movie_link", 29997, 4},
	{"name", 4167491, 1},
	{"person_info", 2963664, 3},
	{"role_type", 12, 1},
	{"title", 2528312, 2},
}

var stackTables = []TableStat{
	{"account", 13872153, 1},
	{"answer", 6347553, 5},
	{"badge", 51236903, 1},
	{"comment", 103459956, 3},
	{"post_link", 2264333, 1},
	{"question", 12666441, 4},
	{"site", 173, 1},
	{"so_user", 21097302, 3},
	{"tag", 186770, 1},
	{"tag_question", 36883819, 2},
}

var tpcdsTables = []TableStat{
	{"call_center", 24, 3},
	{"catalog_page", 12000, 3},
	{"catalog_returns", 1439749, 18},
	{"catalog_sales", 14401261, 19},
	{"customer", 500000, 6},
	{"customer_address", 250000, 2},
	{"customer_demographics", 1920800, 2},
	{"date_dim", 73049, 1},
	{"household_demographics", 7200, 2},
	{"income_band", 20, 1},
	{"inventory", 133110000, 4},
	{"item", 102000, 3},
	{"promotion", 500, 4},
	{"reason", 45, 1},
	{"ship_mode", 20, 1},
	{"store", 102, 2},
	{"store_returns", 2875432, 11},
	{"store_sales", 28800991, 15},
	{"time_dim", 86400, 1},
	{"warehouse", 10, 1},
	{"web_page", 200, 4},
	{"web_returns", 719217, 15},
	{"web_sales", 7197566, 19},
	{"web_site", 42, 3},
}
