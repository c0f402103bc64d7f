package symmetry

// table lists every space group in its standard descriptions. Where a group
// has more than one, the first entry is the default one. Operations come
// from the Hall symbol.
var table = []*SpaceGroup{
	{Number: 1, Symbol: "P 1", Hall: "P 1"},
	{Number: 2, Symbol: "P -1", Hall: "-P 1"},
	{Number: 3, Symbol: "P 2", Hall: "P 2y", Aliases: []string{"P 1 2 1"}},
	{Number: 4, Symbol: "P 21", Hall: "P 2yb", Aliases: []string{"P 1 21 1"}},
	{Number: 5, Symbol: "C 2", Hall: "C 2y", Aliases: []string{"C 1 2 1"}},
	{Number: 5, Symbol: "A 1 2 1", Hall: "A 2y"},
	{Number: 5, Symbol: "I 1 2 1", Hall: "I 2y"},
	{Number: 6, Symbol: "P m", Hall: "P -2y", Aliases: []string{"P 1 m 1"}},
	{Number: 7, Symbol: "P c", Hall: "P -2yc", Aliases: []string{"P 1 c 1"}},
	{Number: 7, Symbol: "P 1 n 1", Hall: "P -2yac"},
	{Number: 7, Symbol: "P 1 a 1", Hall: "P -2ya"},
	{Number: 8, Symbol: "C m", Hall: "C -2y", Aliases: []string{"C 1 m 1"}},
	{Number: 8, Symbol: "A 1 m 1", Hall: "A -2y"},
	{Number: 8, Symbol: "I 1 m 1", Hall: "I -2y"},
	{Number: 9, Symbol: "C c", Hall: "C -2yc", Aliases: []string{"C 1 c 1"}},
	{Number: 9, Symbol: "A 1 n 1", Hall: "A -2yab"},
	{Number: 9, Symbol: "I 1 a 1", Hall: "I -2ya"},
	{Number: 10, Symbol: "P 2/m", Hall: "-P 2y", Aliases: []string{"P 1 2/m 1"}},
	{Number: 11, Symbol: "P 21/m", Hall: "-P 2yb", Aliases: []string{"P 1 21/m 1"}},
	{Number: 12, Symbol: "C 2/m", Hall: "-C 2y", Aliases: []string{"C 1 2/m 1"}},
	{Number: 12, Symbol: "A 1 2/m 1", Hall: "-A 2y"},
	{Number: 12, Symbol: "I 1 2/m 1", Hall: "-I 2y"},
	{Number: 13, Symbol: "P 2/c", Hall: "-P 2yc", Aliases: []string{"P 1 2/c 1"}},
	{Number: 13, Symbol: "P 1 2/n 1", Hall: "-P 2yac"},
	{Number: 13, Symbol: "P 1 2/a 1", Hall: "-P 2ya"},
	{Number: 14, Symbol: "P 21/c", Hall: "-P 2ybc", Aliases: []string{"P 1 21/c 1"}},
	{Number: 14, Symbol: "P 1 21/n 1", Hall: "-P 2yn", Aliases: []string{"P 21/n"}},
	{Number: 14, Symbol: "P 1 21/a 1", Hall: "-P 2yab", Aliases: []string{"P 21/a"}},
	{Number: 15, Symbol: "C 2/c", Hall: "-C 2yc", Aliases: []string{"C 1 2/c 1"}},
	{Number: 15, Symbol: "A 1 2/n 1", Hall: "-A 2yab"},
	{Number: 15, Symbol: "I 1 2/a 1", Hall: "-I 2ya", Aliases: []string{"I 2/a"}},
	{Number: 16, Symbol: "P 2 2 2", Hall: "P 2 2"},
	{Number: 17, Symbol: "P 2 2 21", Hall: "P 2c 2"},
	{Number: 18, Symbol: "P 21 21 2", Hall: "P 2 2ab"},
	{Number: 19, Symbol: "P 21 21 21", Hall: "P 2ac 2ab"},
	{Number: 20, Symbol: "C 2 2 21", Hall: "C 2c 2"},
	{Number: 21, Symbol: "C 2 2 2", Hall: "C 2 2"},
	{Number: 22, Symbol: "F 2 2 2", Hall: "F 2 2"},
	{Number: 23, Symbol: "I 2 2 2", Hall: "I 2 2"},
	{Number: 24, Symbol: "I 21 21 21", Hall: "I 2b 2c"},
	{Number: 25, Symbol: "P m m 2", Hall: "P 2 -2"},
	{Number: 26, Symbol: "P m c 21", Hall: "P 2c -2"},
	{Number: 27, Symbol: "P c c 2", Hall: "P 2 -2c"},
	{Number: 28, Symbol: "P m a 2", Hall: "P 2 -2a"},
	{Number: 29, Symbol: "P c a 21", Hall: "P 2c -2ac"},
	{Number: 30, Symbol: "P n c 2", Hall: "P 2 -2bc"},
	{Number: 31, Symbol: "P m n 21", Hall: "P 2ac -2"},
	{Number: 32, Symbol: "P b a 2", Hall: "P 2 -2ab"},
	{Number: 33, Symbol: "P n a 21", Hall: "P 2c -2n"},
	{Number: 34, Symbol: "P n n 2", Hall: "P 2 -2n"},
	{Number: 35, Symbol: "C m m 2", Hall: "C 2 -2"},
	{Number: 36, Symbol: "C m c 21", Hall: "C 2c -2"},
	{Number: 37, Symbol: "C c c 2", Hall: "C 2 -2c"},
	{Number: 38, Symbol: "A m m 2", Hall: "A 2 -2"},
	{Number: 39, Symbol: "A e m 2", Hall: "A 2 -2b", Aliases: []string{"A b m 2"}},
	{Number: 40, Symbol: "A m a 2", Hall: "A 2 -2a"},
	{Number: 41, Symbol: "A e a 2", Hall: "A 2 -2ab", Aliases: []string{"A b a 2"}},
	{Number: 42, Symbol: "F m m 2", Hall: "F 2 -2"},
	{Number: 43, Symbol: "F d d 2", Hall: "F 2 -2d"},
	{Number: 44, Symbol: "I m m 2", Hall: "I 2 -2"},
	{Number: 45, Symbol: "I b a 2", Hall: "I 2 -2c"},
	{Number: 46, Symbol: "I m a 2", Hall: "I 2 -2a"},
	{Number: 47, Symbol: "P m m m", Hall: "-P 2 2"},
	{Number: 48, Symbol: "P n n n", Setting: SettingOrigin2, Hall: "-P 2ab 2bc"},
	{Number: 48, Symbol: "P n n n", Setting: SettingOrigin1, Hall: "P 2 2 -1n"},
	{Number: 49, Symbol: "P c c m", Hall: "-P 2 2c"},
	{Number: 50, Symbol: "P b a n", Setting: SettingOrigin2, Hall: "-P 2ab 2b"},
	{Number: 50, Symbol: "P b a n", Setting: SettingOrigin1, Hall: "P 2 2 -1ab"},
	{Number: 51, Symbol: "P m m a", Hall: "-P 2a 2a"},
	{Number: 52, Symbol: "P n n a", Hall: "-P 2a 2bc"},
	{Number: 53, Symbol: "P m n a", Hall: "-P 2ac 2"},
	{Number: 54, Symbol: "P c c a", Hall: "-P 2a 2ac"},
	{Number: 55, Symbol: "P b a m", Hall: "-P 2 2ab"},
	{Number: 56, Symbol: "P c c n", Hall: "-P 2ab 2ac"},
	{Number: 57, Symbol: "P b c m", Hall: "-P 2c 2b"},
	{Number: 58, Symbol: "P n n m", Hall: "-P 2 2n"},
	{Number: 59, Symbol: "P m m n", Setting: SettingOrigin2, Hall: "-P 2ab 2a"},
	{Number: 59, Symbol: "P m m n", Setting: SettingOrigin1, Hall: "P 2 2ab -1ab"},
	{Number: 60, Symbol: "P b c n", Hall: "-P 2n 2ab"},
	{Number: 61, Symbol: "P b c a", Hall: "-P 2ac 2ab"},
	{Number: 62, Symbol: "P n m a", Hall: "-P 2ac 2n"},
	{Number: 62, Symbol: "P b n m", Hall: "-P 2c 2ab"},
	{Number: 63, Symbol: "C m c m", Hall: "-C 2c 2"},
	{Number: 64, Symbol: "C m c e", Hall: "-C 2ac 2", Aliases: []string{"C m c a"}},
	{Number: 65, Symbol: "C m m m", Hall: "-C 2 2"},
	{Number: 66, Symbol: "C c c m", Hall: "-C 2 2c"},
	{Number: 67, Symbol: "C m m e", Hall: "-C 2a 2", Aliases: []string{"C m m a"}},
	{Number: 68, Symbol: "C c c e", Setting: SettingOrigin2, Hall: "-C 2a 2ac", Aliases: []string{"C c c a"}},
	{Number: 68, Symbol: "C c c e", Setting: SettingOrigin1, Hall: "C 2 2 -1ac", Aliases: []string{"C c c a"}},
	{Number: 69, Symbol: "F m m m", Hall: "-F 2 2"},
	{Number: 70, Symbol: "F d d d", Setting: SettingOrigin2, Hall: "-F 2uv 2vw"},
	{Number: 70, Symbol: "F d d d", Setting: SettingOrigin1, Hall: "F 2 2 -1d"},
	{Number: 71, Symbol: "I m m m", Hall: "-I 2 2"},
	{Number: 72, Symbol: "I b a m", Hall: "-I 2 2c"},
	{Number: 73, Symbol: "I b c a", Hall: "-I 2b 2c"},
	{Number: 74, Symbol: "I m m a", Hall: "-I 2b 2"},
	{Number: 75, Symbol: "P 4", Hall: "P 4"},
	{Number: 76, Symbol: "P 41", Hall: "P 4w"},
	{Number: 77, Symbol: "P 42", Hall: "P 4c"},
	{Number: 78, Symbol: "P 43", Hall: "P 4cw"},
	{Number: 79, Symbol: "I 4", Hall: "I 4"},
	{Number: 80, Symbol: "I 41", Hall: "I 4bw"},
	{Number: 81, Symbol: "P -4", Hall: "P -4"},
	{Number: 82, Symbol: "I -4", Hall: "I -4"},
	{Number: 83, Symbol: "P 4/m", Hall: "-P 4"},
	{Number: 84, Symbol: "P 42/m", Hall: "-P 4c"},
	{Number: 85, Symbol: "P 4/n", Setting: SettingOrigin2, Hall: "-P 4a"},
	{Number: 85, Symbol: "P 4/n", Setting: SettingOrigin1, Hall: "P 4ab -1ab"},
	{Number: 86, Symbol: "P 42/n", Setting: SettingOrigin2, Hall: "-P 4bc"},
	{Number: 86, Symbol: "P 42/n", Setting: SettingOrigin1, Hall: "P 4n -1n"},
	{Number: 87, Symbol: "I 4/m", Hall: "-I 4"},
	{Number: 88, Symbol: "I 41/a", Setting: SettingOrigin2, Hall: "-I 4ad"},
	{Number: 88, Symbol: "I 41/a", Setting: SettingOrigin1, Hall: "I 4bw -1bw"},
	{Number: 89, Symbol: "P 4 2 2", Hall: "P 4 2"},
	{Number: 90, Symbol: "P 4 21 2", Hall: "P 4ab 2ab"},
	{Number: 91, Symbol: "P 41 2 2", Hall: "P 4w 2c"},
	{Number: 92, Symbol: "P 41 21 2", Hall: "P 4abw 2nw"},
	{Number: 93, Symbol: "P 42 2 2", Hall: "P 4c 2"},
	{Number: 94, Symbol: "P 42 21 2", Hall: "P 4n 2n"},
	{Number: 95, Symbol: "P 43 2 2", Hall: "P 4cw 2c"},
	{Number: 96, Symbol: "P 43 21 2", Hall: "P 4nw 2abw"},
	{Number: 97, Symbol: "I 4 2 2", Hall: "I 4 2"},
	{Number: 98, Symbol: "I 41 2 2", Hall: "I 4bw 2bw"},
	{Number: 99, Symbol: "P 4 m m", Hall: "P 4 -2"},
	{Number: 100, Symbol: "P 4 b m", Hall: "P 4 -2ab"},
	{Number: 101, Symbol: "P 42 c m", Hall: "P 4c -2c"},
	{Number: 102, Symbol: "P 42 n m", Hall: "P 4n -2n"},
	{Number: 103, Symbol: "P 4 c c", Hall: "P 4 -2c"},
	{Number: 104, Symbol: "P 4 n c", Hall: "P 4 -2n"},
	{Number: 105, Symbol: "P 42 m c", Hall: "P 4c -2"},
	{Number: 106, Symbol: "P 42 b c", Hall: "P 4c -2ab"},
	{Number: 107, Symbol: "I 4 m m", Hall: "I 4 -2"},
	{Number: 108, Symbol: "I 4 c m", Hall: "I 4 -2c"},
	{Number: 109, Symbol: "I 41 m d", Hall: "I 4bw -2"},
	{Number: 110, Symbol: "I 41 c d", Hall: "I 4bw -2c"},
	{Number: 111, Symbol: "P -4 2 m", Hall: "P -4 2"},
	{Number: 112, Symbol: "P -4 2 c", Hall: "P -4 2c"},
	{Number: 113, Symbol: "P -4 21 m", Hall: "P -4 2ab"},
	{Number: 114, Symbol: "P -4 21 c", Hall: "P -4 2n"},
	{Number: 115, Symbol: "P -4 m 2", Hall: "P -4 -2"},
	{Number: 116, Symbol: "P -4 c 2", Hall: "P -4 -2c"},
	{Number: 117, Symbol: "P -4 b 2", Hall: "P -4 -2ab"},
	{Number: 118, Symbol: "P -4 n 2", Hall: "P -4 -2n"},
	{Number: 119, Symbol: "I -4 m 2", Hall: "I -4 -2"},
	{Number: 120, Symbol: "I -4 c 2", Hall: "I -4 -2c"},
	{Number: 121, Symbol: "I -4 2 m", Hall: "I -4 2"},
	{Number: 122, Symbol: "I -4 2 d", Hall: "I -4 2bw"},
	{Number: 123, Symbol: "P 4/m m m", Hall: "-P 4 2"},
	{Number: 124, Symbol: "P 4/m c c", Hall: "-P 4 2c"},
	{Number: 125, Symbol: "P 4/n b m", Setting: SettingOrigin2, Hall: "-P 4a 2b"},
	{Number: 125, Symbol: "P 4/n b m", Setting: SettingOrigin1, Hall: "P 4 2 -1ab"},
	{Number: 126, Symbol: "P 4/n n c", Setting: SettingOrigin2, Hall: "-P 4a 2bc"},
	{Number: 126, Symbol: "P 4/n n c", Setting: SettingOrigin1, Hall: "P 4 2 -1n"},
	{Number: 127, Symbol: "P 4/m b m", Hall: "-P 4 2ab"},
	{Number: 128, Symbol: "P 4/m n c", Hall: "-P 4 2n"},
	{Number: 129, Symbol: "P 4/n m m", Setting: SettingOrigin2, Hall: "-P 4a 2a"},
	{Number: 129, Symbol: "P 4/n m m", Setting: SettingOrigin1, Hall: "P 4ab 2ab -1ab"},
	{Number: 130, Symbol: "P 4/n c c", Setting: SettingOrigin2, Hall: "-P 4a 2ac"},
	{Number: 130, Symbol: "P 4/n c c", Setting: SettingOrigin1, Hall: "P 4ab 2n -1ab"},
	{Number: 131, Symbol: "P 42/m m c", Hall: "-P 4c 2"},
	{Number: 132, Symbol: "P 42/m c m", Hall: "-P 4c 2c"},
	{Number: 133, Symbol: "P 42/n b c", Setting: SettingOrigin2, Hall: "-P 4ac 2b"},
	{Number: 133, Symbol: "P 42/n b c", Setting: SettingOrigin1, Hall: "P 4n 2c -1n"},
	{Number: 134, Symbol: "P 42/n n m", Setting: SettingOrigin2, Hall: "-P 4ac 2bc"},
	{Number: 134, Symbol: "P 42/n n m", Setting: SettingOrigin1, Hall: "P 4n 2 -1n"},
	{Number: 135, Symbol: "P 42/m b c", Hall: "-P 4c 2ab"},
	{Number: 136, Symbol: "P 42/m n m", Hall: "-P 4n 2n"},
	{Number: 137, Symbol: "P 42/n m c", Setting: SettingOrigin2, Hall: "-P 4ac 2a"},
	{Number: 137, Symbol: "P 42/n m c", Setting: SettingOrigin1, Hall: "P 4n 2n -1n"},
	{Number: 138, Symbol: "P 42/n c m", Setting: SettingOrigin2, Hall: "-P 4ac 2ac"},
	{Number: 138, Symbol: "P 42/n c m", Setting: SettingOrigin1, Hall: "P 4n 2ab -1n"},
	{Number: 139, Symbol: "I 4/m m m", Hall: "-I 4 2"},
	{Number: 140, Symbol: "I 4/m c m", Hall: "-I 4 2c"},
	{Number: 141, Symbol: "I 41/a m d", Setting: SettingOrigin2, Hall: "-I 4bd 2"},
	{Number: 141, Symbol: "I 41/a m d", Setting: SettingOrigin1, Hall: "I 4bw 2bw -1bw"},
	{Number: 142, Symbol: "I 41/a c d", Setting: SettingOrigin2, Hall: "-I 4bd 2c"},
	{Number: 142, Symbol: "I 41/a c d", Setting: SettingOrigin1, Hall: "I 4bw 2aw -1bw"},
	{Number: 143, Symbol: "P 3", Hall: "P 3"},
	{Number: 144, Symbol: "P 31", Hall: "P 31"},
	{Number: 145, Symbol: "P 32", Hall: "P 32"},
	{Number: 146, Symbol: "R 3", Setting: SettingHexagonal, Hall: "R 3"},
	{Number: 146, Symbol: "R 3", Setting: SettingRhombohedral, Hall: "P 3*"},
	{Number: 147, Symbol: "P -3", Hall: "-P 3"},
	{Number: 148, Symbol: "R -3", Setting: SettingHexagonal, Hall: "-R 3"},
	{Number: 148, Symbol: "R -3", Setting: SettingRhombohedral, Hall: "-P 3*"},
	{Number: 149, Symbol: "P 3 1 2", Hall: "P 3 2"},
	{Number: 150, Symbol: "P 3 2 1", Hall: `P 3 2"`},
	{Number: 151, Symbol: "P 31 1 2", Hall: "P 31 2c (0 0 1)"},
	{Number: 152, Symbol: "P 31 2 1", Hall: `P 31 2"`},
	{Number: 153, Symbol: "P 32 1 2", Hall: "P 32 2c (0 0 -1)"},
	{Number: 154, Symbol: "P 32 2 1", Hall: `P 32 2"`},
	{Number: 155, Symbol: "R 3 2", Setting: SettingHexagonal, Hall: `R 3 2"`},
	{Number: 155, Symbol: "R 3 2", Setting: SettingRhombohedral, Hall: "P 3* 2"},
	{Number: 156, Symbol: "P 3 m 1", Hall: `P 3 -2"`},
	{Number: 157, Symbol: "P 3 1 m", Hall: "P 3 -2"},
	{Number: 158, Symbol: "P 3 c 1", Hall: `P 3 -2"c`},
	{Number: 159, Symbol: "P 3 1 c", Hall: "P 3 -2c"},
	{Number: 160, Symbol: "R 3 m", Setting: SettingHexagonal, Hall: `R 3 -2"`},
	{Number: 160, Symbol: "R 3 m", Setting: SettingRhombohedral, Hall: "P 3* -2"},
	{Number: 161, Symbol: "R 3 c", Setting: SettingHexagonal, Hall: `R 3 -2"c`},
	{Number: 161, Symbol: "R 3 c", Setting: SettingRhombohedral, Hall: "P 3* -2n"},
	{Number: 162, Symbol: "P -3 1 m", Hall: "-P 3 2"},
	{Number: 163, Symbol: "P -3 1 c", Hall: "-P 3 2c"},
	{Number: 164, Symbol: "P -3 m 1", Hall: `-P 3 2"`},
	{Number: 165, Symbol: "P -3 c 1", Hall: `-P 3 2"c`},
	{Number: 166, Symbol: "R -3 m", Setting: SettingHexagonal, Hall: `-R 3 2"`},
	{Number: 166, Symbol: "R -3 m", Setting: SettingRhombohedral, Hall: "-P 3* 2"},
	{Number: 167, Symbol: "R -3 c", Setting: SettingHexagonal, Hall: `-R 3 2"c`},
	{Number: 167, Symbol: "R -3 c", Setting: SettingRhombohedral, Hall: "-P 3* 2n"},
	{Number: 168, Symbol: "P 6", Hall: "P 6"},
	{Number: 169, Symbol: "P 61", Hall: "P 61"},
	{Number: 170, Symbol: "P 65", Hall: "P 65"},
	{Number: 171, Symbol: "P 62", Hall: "P 62"},
	{Number: 172, Symbol: "P 64", Hall: "P 64"},
	{Number: 173, Symbol: "P 63", Hall: "P 6c"},
	{Number: 174, Symbol: "P -6", Hall: "P -6"},
	{Number: 175, Symbol: "P 6/m", Hall: "-P 6"},
	{Number: 176, Symbol: "P 63/m", Hall: "-P 6c"},
	{Number: 177, Symbol: "P 6 2 2", Hall: "P 6 2"},
	{Number: 178, Symbol: "P 61 2 2", Hall: "P 61 2 (0 0 -1)"},
	{Number: 179, Symbol: "P 65 2 2", Hall: "P 65 2 (0 0 1)"},
	{Number: 180, Symbol: "P 62 2 2", Hall: "P 62 2c (0 0 1)"},
	{Number: 181, Symbol: "P 64 2 2", Hall: "P 64 2c (0 0 -1)"},
	{Number: 182, Symbol: "P 63 2 2", Hall: "P 6c 2c"},
	{Number: 183, Symbol: "P 6 m m", Hall: "P 6 -2"},
	{Number: 184, Symbol: "P 6 c c", Hall: "P 6 -2c"},
	{Number: 185, Symbol: "P 63 c m", Hall: "P 6c -2"},
	{Number: 186, Symbol: "P 63 m c", Hall: "P 6c -2c"},
	{Number: 187, Symbol: "P -6 m 2", Hall: "P -6 2"},
	{Number: 188, Symbol: "P -6 c 2", Hall: "P -6c 2"},
	{Number: 189, Symbol: "P -6 2 m", Hall: "P -6 -2"},
	{Number: 190, Symbol: "P -6 2 c", Hall: "P -6c -2c"},
	{Number: 191, Symbol: "P 6/m m m", Hall: "-P 6 2"},
	{Number: 192, Symbol: "P 6/m c c", Hall: "-P 6 2c"},
	{Number: 193, Symbol: "P 63/m c m", Hall: "-P 6c 2"},
	{Number: 194, Symbol: "P 63/m m c", Hall: "-P 6c 2c"},
	{Number: 195, Symbol: "P 2 3", Hall: "P 2 2 3"},
	{Number: 196, Symbol: "F 2 3", Hall: "F 2 2 3"},
	{Number: 197, Symbol: "I 2 3", Hall: "I 2 2 3"},
	{Number: 198, Symbol: "P 21 3", Hall: "P 2ac 2ab 3"},
	{Number: 199, Symbol: "I 21 3", Hall: "I 2b 2c 3"},
	{Number: 200, Symbol: "P m -3", Hall: "-P 2 2 3"},
	{Number: 201, Symbol: "P n -3", Setting: SettingOrigin2, Hall: "-P 2ab 2bc 3"},
	{Number: 201, Symbol: "P n -3", Setting: SettingOrigin1, Hall: "P 2 2 3 -1n"},
	{Number: 202, Symbol: "F m -3", Hall: "-F 2 2 3"},
	{Number: 203, Symbol: "F d -3", Setting: SettingOrigin2, Hall: "-F 2uv 2vw 3"},
	{Number: 203, Symbol: "F d -3", Setting: SettingOrigin1, Hall: "F 2 2 3 -1d"},
	{Number: 204, Symbol: "I m -3", Hall: "-I 2 2 3"},
	{Number: 205, Symbol: "P a -3", Hall: "-P 2ac 2ab 3"},
	{Number: 206, Symbol: "I a -3", Hall: "-I 2b 2c 3"},
	{Number: 207, Symbol: "P 4 3 2", Hall: "P 4 2 3"},
	{Number: 208, Symbol: "P 42 3 2", Hall: "P 4n 2 3"},
	{Number: 209, Symbol: "F 4 3 2", Hall: "F 4 2 3"},
	{Number: 210, Symbol: "F 41 3 2", Hall: "F 4d 2 3"},
	{Number: 211, Symbol: "I 4 3 2", Hall: "I 4 2 3"},
	{Number: 212, Symbol: "P 43 3 2", Hall: "P 4acd 2ab 3"},
	{Number: 213, Symbol: "P 41 3 2", Hall: "P 4bd 2ab 3"},
	{Number: 214, Symbol: "I 41 3 2", Hall: "I 4bd 2c 3"},
	{Number: 215, Symbol: "P -4 3 m", Hall: "P -4 2 3"},
	{Number: 216, Symbol: "F -4 3 m", Hall: "F -4 2 3"},
	{Number: 217, Symbol: "I -4 3 m", Hall: "I -4 2 3"},
	{Number: 218, Symbol: "P -4 3 n", Hall: "P -4n 2 3"},
	{Number: 219, Symbol: "F -4 3 c", Hall: "F -4a 2 3"},
	{Number: 220, Symbol: "I -4 3 d", Hall: "I -4bd 2c 3"},
	{Number: 221, Symbol: "P m -3 m", Hall: "-P 4 2 3"},
	{Number: 222, Symbol: "P n -3 n", Setting: SettingOrigin2, Hall: "-P 4a 2bc 3"},
	{Number: 222, Symbol: "P n -3 n", Setting: SettingOrigin1, Hall: "P 4 2 3 -1n"},
	{Number: 223, Symbol: "P m -3 n", Hall: "-P 4n 2 3"},
	{Number: 224, Symbol: "P n -3 m", Setting: SettingOrigin2, Hall: "-P 4bc 2bc 3"},
	{Number: 224, Symbol: "P n -3 m", Setting: SettingOrigin1, Hall: "P 4n 2 3 -1n"},
	{Number: 225, Symbol: "F m -3 m", Hall: "-F 4 2 3"},
	{Number: 226, Symbol: "F m -3 c", Hall: "-F 4a 2 3"},
	{Number: 227, Symbol: "F d -3 m", Setting: SettingOrigin2, Hall: "-F 4vw 2vw 3"},
	{Number: 227, Symbol: "F d -3 m", Setting: SettingOrigin1, Hall: "F 4d 2 3 -1d"},
	{Number: 228, Symbol: "F d -3 c", Setting: SettingOrigin2, Hall: "-F 4cvw 2vw 3"},
	{Number: 228, Symbol: "F d -3 c", Setting: SettingOrigin1, Hall: "F 4d 2 3 -1ad"},
	{Number: 229, Symbol: "I m -3 m", Hall: "-I 4 2 3"},
	{Number: 230, Symbol: "I a -3 d", Hall: "-I 4bd 2c 3"},
}
