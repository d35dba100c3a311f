package broker

// Word pools for generated peer ids. An id takes one word from each of
// four distinct pools.
var wordPools = [][]string{
	{ // adjectives
		"tiny", "happy", "sleepy", "fluffy", "sparkly", "cheery", "silly", "jolly", "cozy", "shiny",
		"golden", "silver", "crimson", "emerald", "purple", "bright", "gentle", "brave", "calm", "swift",
		"quiet", "bouncy", "fuzzy", "plucky", "merry", "peppy", "misty", "sunny", "lucky", "nimble",
	},
	{ // animals
		"kitten", "puppy", "bunny", "panda", "koala", "fox", "otter", "hedgehog", "squirrel", "hamster",
		"duckling", "fawn", "lamb", "raccoon", "beaver", "seahorse", "starfish", "dolphin", "whale", "narwhal",
		"penguin", "flamingo", "pelican", "sparrow", "robin", "toucan", "parrot", "canary", "owl", "lynx",
	},
	{ // dishes
		"pancake", "waffle", "sushi", "ramen", "curry", "taco", "burrito", "biryani", "paella", "risotto",
		"lasagna", "pizza", "dumpling", "noodle", "omelette", "quiche", "kebab", "fondue", "pierogi", "gnocchi",
		"falafel", "samosa", "poutine", "dimsum", "muffin", "biscuit", "cupcake", "toffee", "crumble", "pretzel",
	},
	{ // things
		"sunbeam", "stardust", "bubble", "sprout", "glimmer", "whisker", "echo", "marble", "maple", "breeze",
		"meadow", "willow", "ember", "poppy", "pixel", "lantern", "puddle", "pebble", "cottage", "rocket",
		"comet", "orbit", "nebula", "canyon", "ridge", "harbor", "thimble", "button", "drizzle", "feather",
	},
	{ // creatures
		"dragon", "unicorn", "griffin", "phoenix", "fairy", "gnome", "sprite", "pixie", "mermaid", "elf",
		"hobbit", "troll", "kraken", "yeti", "sphinx", "golem", "centaur", "wyvern", "banshee", "selkie",
	},
}
