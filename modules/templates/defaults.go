package templates

// 내장 템플릿 세트
// image: [TEXT] 변수 + 업로드 이미지 기반, inspiration/styles: [SUJET] 변수 텍스트 기반

var imageSet = Set{
	Name:        "image",
	ItemsKey:    "customImageModules",
	Variable:    "[TEXT]",
	HistorySlot: "vImageHistory",
	AllowsImage: true,
	Defaults: []Item{
		{
			ID:       "image-drawing",
			Title:    "Dessin Stylisé",
			Template: "Un dessin de [TEXT] dans le style de l'image fournie.",
		},
		{
			ID:       "image-watercolor",
			Title:    "Aquarelle",
			Template: "Une aquarelle de [TEXT] dans le style de l'image.",
		},
	},
}

var inspirationSet = Set{
	Name:     "inspiration",
	ItemsKey: "customInspirationModules",
	Variable: "[SUJET]",
	Defaults: []Item{
		{
			ID:          "insp-miniature",
			Title:       "Monde Miniature",
			Template:    "Photographie macro d'un monde miniature complexe et détaillé représentant [SUJET]. La scène est construite à l'aide de matériaux du quotidien réutilisés de manière créative. Éclairage de studio dramatique, faible profondeur de champ créant un effet tilt-shift, couleurs vives et saturées, hyper-détaillé, mise au point sélective, composition impeccable. Style de Tatsuya Tanaka.",
			Placeholder: "Votre texte ici...",
		},
		{
			ID:          "insp-steampunk",
			Title:       "Créature Steampunk",
			Template:    "Portrait en gros plan d'un [SUJET] mécanique de style steampunk. La créature est faite d'engrenages en laiton, de tuyaux en cuivre et de détails complexes. Des lueurs de vapeur s'échappent des joints. L'arrière-plan est un atelier victorien encombré avec des outils et des plans. Éclairage volumétrique chaud provenant d'une lampe à gaz, textures métalliques réalistes, rendu Octane, très détaillé, 4k, art conceptuel cinématique.",
			Placeholder: "Votre texte ici...",
		},
		{
			ID:          "insp-neonoir",
			Title:       "Scène Néo-Noir",
			Template:    "Une scène de film noir se déroulant dans une ruelle pluvieuse d'une mégalopole cyberpunk en 2088. Un [SUJET] est le point central, illuminé par des enseignes au néon holographiques projetant des reflets colorés sur le sol mouillé. Ambiance maussade et mystérieuse, fumée dense, style Blade Runner, éclairage cinématique, ombres profondes, couleurs contrastées (bleu froid et rose vif), photographie de rue, objectif anamorphique.",
			Placeholder: "Votre texte ici...",
		},
		{
			ID:          "insp-biolum",
			Title:       "Nature Bioluminescente",
			Template:    "Une photographie de nature fantastique d'un [SUJET] dans une forêt extraterrestre la nuit. La flore et la faune environnantes émettent une lumière bioluminescente douce et éthérée (bleu, vert, violet). Des particules de poussière magiques flottent dans l'air. L'atmosphère est onirique et enchantée. Longue exposition, couleurs vibrantes, détails incroyables, style Avatar de James Cameron, ambiance mystique.",
			Placeholder: "Votre texte ici...",
		},
		{
			ID:          "insp-gastro",
			Title:       "Art Gastronomique",
			Template:    "Photographie culinaire de style haute gastronomie, un [SUJET] transformé en un dessert complexe et élégant. Le plat est présenté sur une assiette en ardoise, avec des garnitures délicates comme des fleurs comestibles, des gouttes de coulis et de la poussière d'or. L'éclairage est doux et directionnel pour accentuer les textures. Arrière-plan sombre et minimaliste, très faible profondeur de champ, hyper-détaillé, qualité magazine.",
			Placeholder: "Votre texte ici...",
		},
		{
			ID:          "insp-kirigami",
			Title:       "Art du Papier (Kirigami)",
			Template:    "Une œuvre d'art complexe entièrement réalisée en papier découpé (style kirigami). La scène représente un [SUJET] avec des détails incroyablement fins et des couches de papier superposées pour créer de la profondeur. La composition est centrée et symétrique, le tout dans une seule couleur de papier, posé sur un fond contrasté. Éclairage latéral pour créer des ombres longues et mettre en valeur les découpes, très détaillé, minimaliste, élégant.",
			Placeholder: "Votre texte ici...",
		},
	},
}

var stylesSet = Set{
	Name:        "styles",
	ItemsKey:    "customImageStyles",
	Variable:    "[SUJET]",
	HistorySlot: "vStylesHistory",
	Defaults: []Item{
		{
			ID:          "style-aquarelle",
			Title:       "Rêve d'Aquarelle",
			Template:    "Une peinture à l'aquarelle douce et éthérée de [SUJET], avec des couleurs qui se fondent les unes dans les autres. Bords doux, atmosphère onirique, éclaboussures de peinture subtiles.",
			Placeholder: "Votre texte ici...",
		},
		{
			ID:          "style-cyberpunk",
			Title:       "Néon Cyberpunk",
			Template:    "Une illustration vibrante de [SUJET] dans un style cyberpunk, baignée de néons roses et bleus. Ambiance de ville nocturne pluvieuse, détails high-tech, reflets sur des surfaces mouillées, très détaillé.",
			Placeholder: "Votre texte ici...",
		},
		{
			ID:          "style-minimal",
			Title:       "Dessin au Trait Minimaliste",
			Template:    "Un dessin au trait simple et épuré de [SUJET] sur un fond blanc uni. Une seule ligne continue si possible, style minimaliste, élégant, beaucoup d'espace négatif.",
			Placeholder: "Votre texte ici...",
		},
	},
}

// Sets - 이름→세트 레지스트리
var Sets = map[string]*Set{
	imageSet.Name:       &imageSet,
	inspirationSet.Name: &inspirationSet,
	stylesSet.Name:      &stylesSet,
}
