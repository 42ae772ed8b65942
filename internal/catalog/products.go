package catalog

// defaultProducts содержит ассортимент витрины Cloverleaf.
var defaultProducts = []productRecord{
	{1, "ANUA Deep Cleansing", "15.0", "Cleanser", 4.5, "public/Cleanser/Anua-removebg-preview (1).png"},
	{2, "Hydrating Gel Cleanser", "12.5", "Cleanser", 4.8, "public/Cleanser/Hydrating_Gel_Cleanser-removebg-preview.png"},
	{3, "Brightening Cleanser", "11.99", "Cleanser", 4.2, "public/Cleanser/Anua-HeartleafPoreControlCleansingOil-removebg-preview.png"},
	{4, "Deep Pore Cleanser", "13.99", "Cleanser", 4.7, "public/Cleanser/Deep_Pore_Cleanser-removebg-preview.png"},
	{5, "Softing Cleanser", "9.99", "Cleanser", 4.3, "public/Cleanser/Softting.png"},
	{6, "[ANUA] Heartleaf 77% Soothing Toner 250ml | 500ml", "18.5", "Toner", 4.6, "public/Toner/Anua-Heartleaf-77-Soothing-Toner-250ml-2-removebg-preview.png"},
	{7, "Green Tea Toner", "10.5", "Toner", 4.7, "public/Toner/SOME-removebg-preview.png"},
	{8, "Hydrating Toner", "11.0", "Toner", 4.4, "public/Toner/1004.png"},
	{9, "Aloe Refresh Toner", "9.99", "Toner", 4.2, "public/Toner/Aloe.png"},
	{10, "Vitamin Toner", "12.0", "Toner", 4.8, "public/Toner/CeraVe_Hydrating_Toner.png"},
	{11, "Vitamin C Serum", "19.99", "Serum", 4.9, "/images/serum1.png"},
	{12, "Hyaluronic Serum", "17.5", "Serum", 4.6, "/images/serum2.png"},
	{13, "Niacinamide Serum", "18.99", "Serum", 4.5, "/images/serum3.png"},
	{14, "Anti-Aging Serum", "20.0", "Serum", 4.9, "/images/serum4.png"},
	{15, "Bright Boost Serum", "22.0", "Serum", 4.7, "/images/serum5.png"},
	{16, "Daily UV Defense", "15.5", "Sunscreen", 4.4, "/images/sunscreen1.png"},
	{17, "Aqua Sun Shield", "14.99", "Sunscreen", 4.5, "/images/sunscreen2.png"},
	{18, "Matte Finish SPF 50", "16.5", "Sunscreen", 4.8, "/images/sunscreen3.png"},
	{19, "Light Moist SPF 30", "13.5", "Sunscreen", 4.3, "/images/sunscreen4.png"},
	{20, "Sensitive Skin SPF", "15.0", "Sunscreen", 4.7, "/images/sunscreen5.png"},
	{21, "Aloe Vera Moisturizer", "12.99", "Moisturizer", 4.8, "public/Moisturizer/ALoe.png"},
	{22, "Hydra Boost Cream", "13.5", "Moisturizer", 4.7, "public/Moisturizer/cerave.png"},
	{23, "Light Daily Cream", "11.5", "Moisturizer", 4.3, "/public/Moisturizer/3.png"},
	{24, "Collagen Moist Cream", "15.5", "Moisturizer", 4.6, "public/Moisturizer/isntree.png"},
	{25, "Oil-Free Moist Gel", "10.99", "Moisturizer", 4.4, "public/Moisturizer/Skin 1004.webp"},
	{26, "Charcoal Detox Mask", "8.5", "Face Mask", 4.5, "/images/mask1.png"},
	{27, "Clay Purify Mask", "9.0", "Face Mask", 4.4, "/images/mask2.png"},
	{28, "Hydrating Sheet Mask", "7.5", "Face Mask", 4.3, "/images/mask3.png"},
	{29, "Vitamin Mask", "8.0", "Face Mask", 4.5, "/images/mask4.png"},
	{30, "Bright Glow Mask", "9.5", "Face Mask", 4.6, "/images/mask5.png"},
	{31, "Anti-Wrinkle Eye Cream", "14.0", "Eye Cream", 4.8, "/images/eye1.png"},
	{32, "Hydra Eye Gel", "13.0", "Eye Cream", 4.5, "/images/eye2.png"},
	{33, "Bright Eye Serum", "15.0", "Eye Cream", 4.6, "/images/eye3.png"},
	{34, "Caffeine Eye Cream", "12.5", "Eye Cream", 4.4, "/images/eye4.png"},
	{35, "Soothing Eye Balm", "14.5", "Eye Cream", 4.5, "/images/eye5.png"},
	{36, "Peach Glow Blush", "9.99", "Blush", 4.6, "/images/blush1.png"},
	{37, "Rose Pink Blush", "10.5", "Blush", 4.7, "/images/blush2.png"},
	{38, "Coral Shine Blush", "9.5", "Blush", 4.3, "/images/blush3.png"},
	{39, "Natural Tone Blush", "11.0", "Blush", 4.4, "/images/blush4.png"},
	{40, "Matte Finish Blush", "10.99", "Blush", 4.6, "/images/blush5.png"},
	{41, "Golden Glow Highlighter", "11.99", "Highlighter", 4.7, "/images/high1.png"},
	{42, "Shimmer Beam", "12.5", "Highlighter", 4.6, "/images/high2.png"},
	{43, "Soft Glow Stick", "10.5", "Highlighter", 4.5, "/images/high3.png"},
	{44, "Radiant Highlighter", "13.0", "Highlighter", 4.8, "/images/high4.png"},
	{45, "Diamond Shine", "14.0", "Highlighter", 4.9, "/images/high5.png"},
	{46, "Vanilla Lip Balm", "5.5", "Lip Balm", 4.4, "/images/lip1.png"},
	{47, "Strawberry Lip Balm", "6.0", "Lip Balm", 4.5, "/images/lip2.png"},
	{48, "Coconut Lip Balm", "5.8", "Lip Balm", 4.6, "/images/lip3.png"},
	{49, "Mint Lip Balm", "6.2", "Lip Balm", 4.3, "/images/lip4.png"},
	{50, "Honey Lip Balm", "5.9", "Lip Balm", 4.7, "/images/lip5.png"},
}
